package csvio

import (
	"errors"
	"strings"
	"testing"

	"campanha/internal/core"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		want     string
		encoding string
	}{
		{"plain utf-8", []byte("Situação;Loja"), "Situação;Loja", EncodingUTF8},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Loja")...), "Loja", EncodingUTF8},
		{"latin-1", []byte("Situa\xe7\xe3o;Loja"), "Situação;Loja", EncodingLatin1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enc := Decode(tt.raw)
			if got != tt.want || enc != tt.encoding {
				t.Errorf("Decode() = %q (%s), want %q (%s)", got, enc, tt.want, tt.encoding)
			}
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want rune
	}{
		{"semicolon", "a;b;c\n1;2;3\n4;5;6", ';'},
		{"comma", "a,b,c\n1,2,3", ','},
		{"tab", "a\tb\tc\n1\t2\t3", '\t'},
		{"pipe", "a|b|c\n1|2|3", '|'},
		{"semicolon beats decimal commas", "loja;ticket\nAlpha;1,50\nBeta;2,75\nGama;3,00", ';'},
		{"no delimiter defaults to comma", "single column\nvalue", ','},
		{"tie prefers semicolon", "a;b,c", ';'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter(tt.text); got != tt.want {
				t.Errorf("DetectDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectHeaderAndRowsSkipsPreamble(t *testing.T) {
	rows := [][]string{
		{"Relatório de Propostas"},
		{"Gerado em 12/12/2025"},
		{"Campanha Cartão"},
		{"Filtro: todas as lojas"},
		{"Data Cadastro", "Loja", "CNPJ", "CPF", "Status", "Ticket"},
		{"12/12/2025", "Alpha", "12.345.678/0001-90", "***.123.456-**", "Aprovado", "10,00"},
	}
	det, ok := DetectHeaderAndRows(rows)
	if !ok {
		t.Fatalf("expected a header to be found")
	}
	if det.HeaderIndex != 4 {
		t.Fatalf("HeaderIndex = %d, want 4", det.HeaderIndex)
	}
	if det.Score != 5 {
		t.Errorf("Score = %d, want 5", det.Score)
	}
	if len(det.Rows) != 1 || det.Rows[0][1] != "Alpha" {
		t.Errorf("unexpected data rows: %v", det.Rows)
	}
}

func TestDetectHeaderAndRowsTieKeepsEarliest(t *testing.T) {
	rows := [][]string{
		{"Loja", "Status"},
		{"Filial", "Situação"},
	}
	det, ok := DetectHeaderAndRows(rows)
	if !ok || det.HeaderIndex != 0 {
		t.Fatalf("got index %d ok=%v, want 0", det.HeaderIndex, ok)
	}
}

func TestDetectHeaderAndRowsNotFound(t *testing.T) {
	if _, ok := DetectHeaderAndRows(nil); ok {
		t.Errorf("empty input must not detect a header")
	}
	if _, ok := DetectHeaderAndRows([][]string{{"foo", "bar"}, {"1", "2"}}); ok {
		t.Errorf("rows without keywords must not detect a header")
	}
}

func TestDetectHeaderAndRowsScanLimit(t *testing.T) {
	rows := make([][]string, 0, MaxHeaderScan+1)
	for i := 0; i < MaxHeaderScan; i++ {
		rows = append(rows, []string{"preamble"})
	}
	rows = append(rows, []string{"Loja", "CPF"})
	if _, ok := DetectHeaderAndRows(rows); ok {
		t.Errorf("header beyond the scan window must not be detected")
	}
}

func TestParseCSV(t *testing.T) {
	raw := strings.Join([]string{
		"Relatório diário",
		"",
		"Data Cadastro;Loja;CNPJ;CPF;Status;Ticket",
		"12/12/2025;Alpha;12345678000190;***.123.456-**;Aprovado;\"1.234,56\"",
		";;;;;",
		"11/12/2025;Beta;12345678000190;***.999.456-**;Reprovado;10",
	}, "\n")

	table, err := ParseCSV([]byte(raw))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if table.Meta.Delimiter != ";" || table.Meta.HeaderRow != 1 || table.Meta.DataRows != 2 {
		t.Errorf("unexpected meta: %+v", table.Meta)
	}
	if got := table.Cell(table.Rows[0], 5); got != "1.234,56" {
		t.Errorf("Cell() = %q, want 1.234,56", got)
	}
	if got := table.Cell(table.Rows[0], 42); got != "" {
		t.Errorf("out of range Cell() = %q, want empty", got)
	}
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code core.ErrorCode
	}{
		{"empty", "", core.CodeEmptyFile},
		{"whitespace only", "  \n\n ", core.CodeEmptyFile},
		{"no header", "foo,bar\n1,2", core.CodeHeaderNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV([]byte(tt.raw))
			de, ok := core.AsDatasetError(err)
			if !ok {
				t.Fatalf("expected dataset error, got %v", err)
			}
			if de.Code != tt.code {
				t.Errorf("code = %s, want %s", de.Code, tt.code)
			}
		})
	}

	_, err := ParseCSV([]byte("foo,bar"))
	if !errors.Is(err, ErrNoHeadersFound) {
		t.Errorf("expected ErrNoHeadersFound in chain, got %v", err)
	}
}
