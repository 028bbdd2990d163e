package columns

import (
	"strings"

	"campanha/internal/textnorm"
)

// Strategy records how the canonical month date column was chosen.
type Strategy string

const (
	StrategyKeywordMatch        Strategy = "keyword_match"
	StrategyStatisticalFallback Strategy = "statistical_fallback"
	StrategyDefault             Strategy = "default"
)

const (
	sampleLimit   = 50
	minSampleSize = 5
	minParseRate  = 0.8
)

// Creation oriented terms in priority order, and outcome oriented terms that
// disqualify a header.
var (
	monthDatePositive = []string{"cadastro", "digitacao", "solicitacao", "criacao", "entrada", "proposta"}
	monthDateNegative = []string{"aprovacao", "finalizacao", "ativacao", "status"}
)

// Resolution identifies the canonical month date column.
type Resolution struct {
	Header    string   `json:"header"`
	Index     int      `json:"index"`
	Strategy  Strategy `json:"strategy"`
	Pattern   string   `json:"pattern,omitempty"`
	Sampled   int      `json:"sampled,omitempty"`
	ParseRate float64  `json:"parseRate,omitempty"`
}

// DateCheck reports whether a raw cell holds a valid date.
type DateCheck func(string) bool

// ResolveMonthDateField picks the column that says when a proposal was
// created. Keyword matches on date headers win; otherwise the first column
// whose sampled values mostly parse as dates is used. ok is false when no
// column qualifies.
func ResolveMonthDateField(headers []string, rows [][]string, isDate DateCheck) (Resolution, bool) {
	labels := make([]string, len(headers))
	for i, h := range headers {
		labels[i] = textnorm.NormalizeLabel(h)
	}

	for _, p := range monthDatePositive {
		for i, l := range labels {
			if l == "" || isNegative(l) || !isDateHeader(l) {
				continue
			}
			if strings.Contains(l, p) {
				return Resolution{Header: headers[i], Index: i, Strategy: StrategyKeywordMatch, Pattern: p}, true
			}
		}
	}

	if isDate == nil {
		return Resolution{Index: Missing}, false
	}
	for i, l := range labels {
		if l == "" || isNegative(l) {
			continue
		}
		sampled, parsed := 0, 0
		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v == "" {
				continue
			}
			sampled++
			if isDate(v) {
				parsed++
			}
			if sampled >= sampleLimit {
				break
			}
		}
		if sampled < minSampleSize {
			continue
		}
		rate := float64(parsed) / float64(sampled)
		if rate >= minParseRate {
			return Resolution{
				Header:    headers[i],
				Index:     i,
				Strategy:  StrategyStatisticalFallback,
				Sampled:   sampled,
				ParseRate: rate,
			}, true
		}
	}
	return Resolution{Index: Missing}, false
}

func isNegative(label string) bool {
	_, neg := textnorm.MatchAny(label, monthDateNegative)
	return neg
}

func isDateHeader(label string) bool {
	for _, t := range dateTokens {
		if textnorm.HasPhrase(label, t) {
			return true
		}
	}
	return false
}
