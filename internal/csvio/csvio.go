// Package csvio turns a raw spreadsheet export into a header plus data rows.
// It detects the text encoding, the field delimiter and the real header row
// among preamble lines.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"campanha/internal/core"
	"campanha/internal/textnorm"
)

const (
	// MaxHeaderScan bounds how many leading rows are considered as header
	// candidates.
	MaxHeaderScan = 25

	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"

	delimiterSampleLines = 15
)

// Candidate delimiters in tie-break order. Semicolon comes first because it
// is what Excel emits under a pt-BR locale.
var delimiters = []rune{';', ',', '\t', '|'}

// headerFamilies are the keyword families a header row is scored against.
var headerFamilies = [][]string{
	{"data", "dt", "date"},
	{"loja", "filial", "estabelecimento", "unidade", "store"},
	{"cnpj"},
	{"cpf"},
	{"status", "situacao"},
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not find data headers")
)

// Meta describes how the table was read.
type Meta struct {
	Delimiter string `json:"delimiter"`
	HeaderRow int    `json:"headerRow"`
	Encoding  string `json:"encoding"`
	DataRows  int    `json:"dataRows"`
}

// Table is a parsed CSV: trimmed header labels and the rows that follow the
// header. Rows may be ragged.
type Table struct {
	Headers []string
	Rows    [][]string
	Meta    Meta
}

// Detection is the outcome of header detection.
type Detection struct {
	HeaderIndex int
	Header      []string
	Rows        [][]string
	Score       int
}

// Cell returns the trimmed value of column col in row, or "" when the row is
// too short or col is negative.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}


// Decode returns raw as UTF-8 text. A UTF-8 BOM is dropped; bytes that are
// not valid UTF-8 are read as ISO-8859-1.
func Decode(raw []byte) (string, string) {
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8
	}
	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return string(raw), EncodingUTF8
	}
	return string(out), EncodingLatin1
}

// DetectDelimiter samples the first lines and returns the delimiter whose
// per-line count is the most consistent. Defaults to comma.
func DetectDelimiter(text string) rune {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) >= delimiterSampleLines {
			break
		}
	}

	best, bestScore := ',', 0
	for _, d := range delimiters {
		freq := map[int]int{}
		for _, line := range lines {
			if n := strings.Count(line, string(d)); n > 0 {
				freq[n]++
			}
		}
		score := 0
		for count, lines := range freq {
			if s := count * lines; s > score {
				score = s
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

// Tokenize splits text into records using delim. Blank records are skipped.
func Tokenize(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if isBlank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// DetectHeaderAndRows picks the header among the first MaxHeaderScan rows by
// counting matched keyword families; the earliest row wins ties. Rows after
// the header are returned as data. ok is false when there are no rows or no
// row matches any family.
func DetectHeaderAndRows(rows [][]string) (Detection, bool) {
	best := Detection{HeaderIndex: -1}
	for i, row := range rows {
		if i >= MaxHeaderScan {
			break
		}
		if score := scoreHeader(row); score > best.Score {
			best = Detection{HeaderIndex: i, Score: score}
		}
	}
	if best.HeaderIndex < 0 {
		return Detection{HeaderIndex: -1}, false
	}

	header := make([]string, len(rows[best.HeaderIndex]))
	for i, h := range rows[best.HeaderIndex] {
		header[i] = strings.TrimSpace(h)
	}
	best.Header = header
	best.Rows = rows[best.HeaderIndex+1:]
	return best, true
}

// ParseCSV decodes raw, detects delimiter and header and returns the table.
func ParseCSV(raw []byte) (*Table, error) {
	text, encoding := Decode(raw)
	table, err := ParseText(text)
	if err != nil {
		return nil, err
	}
	table.Meta.Encoding = encoding
	return table, nil
}

// ParseText is ParseCSV for input that is already text.
func ParseText(text string) (*Table, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewDatasetError(core.CodeEmptyFile, "the uploaded file is empty").WithCause(ErrEmptyFile)
	}

	delim := DetectDelimiter(text)
	rows, err := Tokenize(text, delim)
	if err != nil {
		return nil, core.NewDatasetError(core.CodeMalformedCSV, "the uploaded file is not a readable CSV").WithCause(err)
	}
	if len(rows) == 0 {
		return nil, core.NewDatasetError(core.CodeEmptyFile, "the uploaded file has no rows").WithCause(ErrEmptyFile)
	}

	det, ok := DetectHeaderAndRows(rows)
	if !ok {
		return nil, core.NewDatasetError(core.CodeHeaderNotFound, "no header row with date, store, CNPJ, CPF or status columns was found").
			WithCause(ErrNoHeadersFound).
			WithDetail("scannedRows", min(len(rows), MaxHeaderScan))
	}

	return &Table{
		Headers: det.Header,
		Rows:    det.Rows,
		Meta: Meta{
			Delimiter: string(delim),
			HeaderRow: det.HeaderIndex,
			Encoding:  EncodingUTF8,
			DataRows:  len(det.Rows),
		},
	}, nil
}

func scoreHeader(row []string) int {
	labels := make([]string, 0, len(row))
	for _, cell := range row {
		if l := textnorm.NormalizeLabel(cell); l != "" {
			labels = append(labels, l)
		}
	}
	score := 0
	for _, family := range headerFamilies {
		if familyMatches(labels, family) {
			score++
		}
	}
	return score
}

func familyMatches(labels, family []string) bool {
	for _, l := range labels {
		for _, kw := range family {
			if textnorm.HasPhrase(l, kw) {
				return true
			}
		}
	}
	return false
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
