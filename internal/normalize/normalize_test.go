package normalize

import (
	"testing"
	"time"

	"campanha/internal/catalog"
	"campanha/internal/columns"
	"campanha/internal/core"
	"campanha/internal/csvio"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want core.RowStatus
	}{
		{"Aprovado", core.StatusAprovado},
		{"APROVADA", core.StatusAprovado},
		{" aprovado ", core.StatusAprovado},
		{"Reprovado", core.StatusReprovado},
		{"reprovada", core.StatusReprovado},
		{"Aprovado parcialmente", core.StatusPendente},
		{"Em Análise", core.StatusAnalise},
		{"Aguardando Documentos", core.StatusAguardandoDocumentos},
		{"Aguardando finalizar cadastro", core.StatusAguardandoFinalizarCadastro},
		{"Aguardando cadastro", core.StatusAguardandoFinalizarCadastro},
		{"Pendente", core.StatusPendente},
		{"", core.StatusPendente},
		{"Cancelado", core.StatusPendente},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.raw); got != tt.want {
			t.Errorf("ClassifyStatus(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12/12/2025", "2025-12-12", true},
		{"1/2/2025", "2025-02-01", true},
		{"12/12/2025 14:33:02", "2025-12-12", true},
		{"12-12-2025", "2025-12-12", true},
		{"2025-12-12", "2025-12-12", true},
		{"2025-12-12 23:59", "2025-12-12", true},
		{"2025-12-12T02:00:00Z", "2025-12-11", true},
		{"29/02/2024", "2024-02-29", true},
		{"29/02/2025", "", false},
		{"31/04/2025", "", false},
		{"13/13/2025", "", false},
		{"", "", false},
		{"ontem", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in, sp)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.ISO() != tt.want {
			t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.ISO(), tt.want)
		}
	}
}

func TestParseTicket(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"R$ 1.234,56", "1234.56", true},
		{"1.234,56", "1234.56", true},
		{"150,90", "150.9", true},
		{"150.90", "150.9", true},
		{"1.500", "1500", true},
		{"1.234.567", "1234567", true},
		{"1,234,567", "1234567", true},
		{"-10,5", "-10.5", true},
		{"R$ 1 234,00", "1234", true},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTicket(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseTicket(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("ParseTicket(%q) = %s, want %s", tt.in, got.String(), tt.want)
		}
	}
}

func TestCNPJAndProposalID(t *testing.T) {
	if !ValidCNPJ("07.316.250/0012-64") {
		t.Errorf("formatted CNPJ should be valid")
	}
	for _, bad := range []string{"", "123", "00000000000000", "073162500012645"} {
		if ValidCNPJ(bad) {
			t.Errorf("ValidCNPJ(%q) = true", bad)
		}
	}
	if id, ok := ParseProposalID(" 4521 "); !ok || id != 4521 {
		t.Errorf("ParseProposalID = %d, %v", id, ok)
	}
	for _, bad := range []string{"", "0", "-3", "12a", "1.5"} {
		if _, ok := ParseProposalID(bad); ok {
			t.Errorf("ParseProposalID(%q) accepted", bad)
		}
	}
}

func TestNormalizeRows(t *testing.T) {
	table := &csvio.Table{
		Headers: []string{"Data", "Loja", "CNPJ", "CPF", "Status", "Ticket", "Grupo"},
		Rows: [][]string{
			{"12/12/2025", "Alpha", "", "***.123.456-**", "Aprovado", "100,00", "B"},
			{"12/12/2025", "x", "07316250001264", "***.999.456-**", "Reprovado", "", ""},
			{"sem data", "Alpha", "", "***", "Aprovado", "", ""},
			{"11/12/2025", "", "", "***", "Em análise", "", ""},
		},
	}
	cols, err := columns.InferColumns(table.Headers, "Data")
	if err != nil {
		t.Fatalf("InferColumns() error = %v", err)
	}
	rows, stats := NormalizeRows(table, cols, catalog.Default(nil), time.UTC)

	if stats.Total != 4 || stats.Kept != 3 || stats.InvalidDate != 1 || stats.NoStore != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if rows[0].Store != "Alpha" || rows[0].Group != "B" || rows[0].CPF != "***.123.456-**" || !rows[0].Ticket.Valid {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[1].Store != "LOJA 12 — ARAUCÁRIA CENTRO" || rows[1].Group != "A" || rows[1].Ticket.Valid {
		t.Errorf("row 1 = %+v", rows[1])
	}
	if rows[2].Store != core.NoStoreLabel || rows[2].Group != "" || rows[2].Status != core.StatusAnalise {
		t.Errorf("row 2 = %+v", rows[2])
	}
}

func TestNormalizeProposals(t *testing.T) {
	table := &csvio.Table{
		Headers: []string{"Proposta", "Data Cadastro", "Data Finalização", "Status", "Loja", "CNPJ"},
		Rows: [][]string{
			{"1", "01/12/2025", "03/12/2025", "Aprovado", "Loja 12", ""},
			{"2", "02/12/2025", "", "Aguardando documentos", "Alpha", ""},
			{"abc", "02/12/2025", "", "Aprovado", "Alpha", ""},
			{"3", "", "", "Aprovado", "Alpha", ""},
			{"1", "05/12/2025", "", "Reprovado", "Alpha", ""},
			{"4", "06/12/2025", "", "Reprovado", "", "123"},
			{"5", "07/12/2025", "", "Reprovado", "", ""},
		},
	}
	facts, stats, err := NormalizeProposals(table, Options{}, catalog.Default(nil), time.UTC)
	if err != nil {
		t.Fatalf("NormalizeProposals() error = %v", err)
	}
	if stats.InvalidID != 1 || stats.InvalidDate != 1 || stats.DuplicateID != 1 || stats.Kept != 4 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	f := facts[0]
	if f.ProposalID != 1 || f.Approved != 1 || f.Rejected != 0 || f.Group != "Grupo A" || f.FinalizedDate == nil || f.FinalizedDate.ISO() != "2025-12-03" {
		t.Errorf("fact 0 = %+v", f)
	}
	if facts[1].Status != core.FactOutros || facts[1].PendingReason != core.StatusAguardandoDocumentos || facts[1].Group != core.NoGroupLabel {
		t.Errorf("fact 1 = %+v", facts[1])
	}
	if facts[3].Store != nil || facts[3].StoreName() != core.NoStoreLabel {
		t.Errorf("fact 3 should have no store: %+v", facts[3])
	}
	for _, f := range facts {
		if err := f.Validate(); err != nil {
			t.Errorf("fact %d invalid: %v", f.ProposalID, err)
		}
	}

	strict, stats, err := NormalizeProposals(table, Options{StrictCNPJ: true}, catalog.Default(nil), time.UTC)
	if err != nil {
		t.Fatalf("strict error = %v", err)
	}
	if stats.InvalidCNPJ != 1 || len(strict) != 3 {
		t.Errorf("strict CNPJ: stats=%+v len=%d", stats, len(strict))
	}
}

func TestNormalizeProposalsMissingColumn(t *testing.T) {
	table := &csvio.Table{Headers: []string{"Data", "Loja"}}
	_, _, err := NormalizeProposals(table, Options{}, catalog.Default(nil), time.UTC)
	if _, ok := core.AsDatasetError(err); !ok {
		t.Fatalf("expected a column error, got %v", err)
	}
}

func TestNormalizeProposalsGroupFromCatalog(t *testing.T) {
	table := &csvio.Table{
		Headers: []string{"Proposta", "Data Cadastro", "Status", "Loja", "Grupo"},
		Rows: [][]string{
			{"1", "01/12/2025", "Aprovado", "Alpha", "A"},
			{"2", "01/12/2025", "Aprovado", "Loja 12", "C"},
		},
	}
	facts, _, err := NormalizeProposals(table, Options{}, catalog.Default(nil), time.UTC)
	if err != nil {
		t.Fatalf("NormalizeProposals() error = %v", err)
	}
	if facts[0].Group != core.NoGroupLabel {
		t.Errorf("unknown store took its group from the file: %q", facts[0].Group)
	}
	if facts[1].Group != "Grupo A" {
		t.Errorf("catalog store group = %q, want Grupo A", facts[1].Group)
	}
}

func TestResolveEntryDate(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		fallback string
		header   string
		ok       bool
	}{
		{"keyword beats earlier date column", []string{"Data Pagamento", "Data da Proposta"}, "", "Data da Proposta", true},
		{"fallback column", []string{"Quando", "Loja"}, "quando", "Quando", true},
		{"nothing to pick", []string{"Quando", "Loja"}, "Data Cadastro", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ResolveEntryDate(tt.headers, [][]string{{"01/12/2025", "x"}}, tt.fallback)
			if ok != tt.ok || res.Header != tt.header {
				t.Errorf("ResolveEntryDate() = %+v, %v", res, ok)
			}
		})
	}
}
