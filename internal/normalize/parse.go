package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"campanha/internal/core"
	"campanha/internal/textnorm"
)

var (
	brDatePattern  = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})(?:[ T].*)?$`)
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[ T].*)?$`)
	thousandsDot   = regexp.MustCompile(`^\d{1,3}\.\d{3}$`)
)

// ClassifyStatus maps a raw status cell to a row status. Only exact
// approved/rejected words are decided outcomes; everything else is a
// pending reason, PENDENTE when nothing more specific applies.
func ClassifyStatus(raw string) core.RowStatus {
	s := textnorm.NormalizeLabel(raw)
	switch s {
	case "aprovado", "aprovada":
		return core.StatusAprovado
	case "reprovado", "reprovada":
		return core.StatusReprovado
	}
	switch {
	case strings.Contains(s, "documento"):
		return core.StatusAguardandoDocumentos
	case strings.Contains(s, "finalizar"), strings.Contains(s, "aguardando") && strings.Contains(s, "cadastro"):
		return core.StatusAguardandoFinalizarCadastro
	case strings.Contains(s, "analise"):
		return core.StatusAnalise
	default:
		return core.StatusPendente
	}
}

// ParseDate reads dd/MM/yyyy (or dd-MM-yyyy) with an optional time part, an
// ISO yyyy-MM-dd date, or an RFC 3339 timestamp. Timestamps with an offset
// are converted to loc before the calendar day is taken; any other time part
// is discarded.
func ParseDate(s string, loc *time.Location) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, false
	}
	if m := brDatePattern.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1])
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return core.DateOf(t, loc), true
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}
	return core.Date{}, false
}

// IsDate reports whether s parses with ParseDate.
func IsDate(s string) bool {
	_, ok := ParseDate(s, time.UTC)
	return ok
}

func calendarDate(ys, ms, ds string) (core.Date, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return core.Date{}, false
	}
	if y < 1900 || m < 1 || m > 12 || d < 1 || d > core.DaysIn(y, m) {
		return core.Date{}, false
	}
	return core.NewDate(y, m, d), true
}

// ParseTicket reads a money amount written the Brazilian way. With both
// separators present the comma is the decimal point; a lone dot is a
// thousands separator only when it groups exactly three digits.
func ParseTicket(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	commas, dots := strings.Count(s, ","), strings.Count(s, ".")
	switch {
	case commas > 0 && dots > 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case dots > 1 || thousandsDot.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// CNPJDigits returns only the digits of s.
func CNPJDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidCNPJ reports whether s carries a structurally valid CNPJ: 14 digits
// once punctuation is removed, not all equal.
func ValidCNPJ(s string) bool {
	d := CNPJDigits(s)
	if len(d) != 14 {
		return false
	}
	return strings.Count(d, d[:1]) != len(d)
}

// ParseProposalID reads a positive integer proposal id.
func ParseProposalID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
