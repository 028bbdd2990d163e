// Package columns maps loosely named spreadsheet headers onto the semantic
// fields the pipeline needs.
package columns

import (
	"strings"

	"campanha/internal/core"
	"campanha/internal/textnorm"
)

// Field names used in errors and audits.
const (
	FieldEntryDate  = "entryDate"
	FieldStore      = "store"
	FieldCNPJ       = "cnpj"
	FieldCPF        = "cpf"
	FieldStatus     = "status"
	FieldTicket     = "ticket"
	FieldGroup      = "group"
	FieldProposalID = "proposalId"
	FieldFinalized  = "finalizedDate"
)

// Missing marks an optional column that is absent.
const Missing = -1

// Spec describes how one semantic field is found. Patterns are tried in
// order against every header; a header containing any Exclude phrase is
// never a candidate.
type Spec struct {
	Field    string
	Patterns []string
	Exclude  []string
}

var dateTokens = []string{"data", "dt", "date"}

var (
	storeSpec = Spec{
		Field:    FieldStore,
		Patterns: []string{"loja", "filial", "estabelecimento", "unidade", "ponto de venda", "pdv", "store"},
		Exclude:  []string{"cnpj", "grupo"},
	}
	cnpjSpec   = Spec{Field: FieldCNPJ, Patterns: []string{"cnpj"}}
	cpfSpec    = Spec{Field: FieldCPF, Patterns: []string{"cpf"}}
	statusSpec = Spec{
		Field:    FieldStatus,
		Patterns: []string{"status proposta", "status", "situacao"},
		Exclude:  dateTokens,
	}
	ticketSpec = Spec{
		Field:    FieldTicket,
		Patterns: []string{"ticket", "valor primeira compra", "primeira compra", "valor compra"},
		Exclude:  []string{"limite", "parcela"},
	}
	groupSpec = Spec{
		Field:    FieldGroup,
		Patterns: []string{"grupo", "group", "segmento"},
	}
	proposalIDSpec = Spec{
		Field:    FieldProposalID,
		Patterns: []string{"id proposta", "numero proposta", "numero da proposta", "n proposta", "cod proposta", "codigo proposta", "proposta id", "proposta"},
		Exclude:  append([]string{"status"}, dateTokens...),
	}
	finalizedSpec = Spec{
		Field: FieldFinalized,
		Patterns: []string{
			"data finalizacao", "dt finalizacao", "data ativacao", "dt ativacao",
			"data aprovacao", "dt aprovacao", "finalizacao", "ativacao",
		},
	}
)

var specsByField = map[string]Spec{
	FieldStore:      storeSpec,
	FieldCNPJ:       cnpjSpec,
	FieldCPF:        cpfSpec,
	FieldStatus:     statusSpec,
	FieldTicket:     ticketSpec,
	FieldGroup:      groupSpec,
	FieldProposalID: proposalIDSpec,
	FieldFinalized:  finalizedSpec,
}

// Locate finds the column of a named field, or Missing.
func Locate(headers []string, field string) int {
	s, ok := specsByField[field]
	if !ok {
		return Missing
	}
	return FindColumn(headers, s)
}

// Require is Locate for a field that must be present.
func Require(headers []string, field string) (int, error) {
	s, ok := specsByField[field]
	if !ok {
		return Missing, &core.ColumnNotFoundError{Field: field}
	}
	if i := FindColumn(headers, s); i != Missing {
		return i, nil
	}
	return Missing, notFound(s)
}

// Columns holds the resolved index of every field used by the metrics
// aggregator. Optional fields are Missing when absent.
type Columns struct {
	EntryDate int
	Store     int
	CNPJ      int
	CPF       int
	Status    int
	Ticket    int
	Group     int
}

// ProposalColumns holds the indexes used to build proposal facts.
type ProposalColumns struct {
	ProposalID int
	EntryDate  int
	Status     int
	Store      int
	CNPJ       int
	Finalized  int
	Ticket     int
}

// FindColumn returns the index of the first header matched by the earliest
// pattern of spec, or Missing.
func FindColumn(headers []string, spec Spec) int {
	labels := make([]string, len(headers))
	for i, h := range headers {
		labels[i] = textnorm.NormalizeLabel(h)
	}
	for _, p := range spec.Patterns {
		for i, l := range labels {
			if l == "" || excluded(l, spec.Exclude) {
				continue
			}
			if strings.Contains(l, p) {
				return i
			}
		}
	}
	return Missing
}

// IndexOf returns the index of the header whose normalized label equals the
// normalized name, or Missing.
func IndexOf(headers []string, name string) int {
	want := textnorm.NormalizeLabel(name)
	if want == "" {
		return Missing
	}
	for i, h := range headers {
		if textnorm.NormalizeLabel(h) == want {
			return i
		}
	}
	return Missing
}

// InferColumns resolves the fields needed by the metrics aggregator.
// entryDateHeader names the entry date column, as picked by the month date
// resolver. The first missing required field is reported as a
// *core.ColumnNotFoundError.
func InferColumns(headers []string, entryDateHeader string) (Columns, error) {
	entry := IndexOf(headers, entryDateHeader)
	if entry == Missing {
		return Columns{}, EntryDateNotFound(entryDateHeader)
	}
	required := []Spec{storeSpec, cnpjSpec, cpfSpec, statusSpec, ticketSpec}
	idx := make([]int, len(required))
	for i, s := range required {
		idx[i] = FindColumn(headers, s)
		if idx[i] == Missing {
			return Columns{}, notFound(s)
		}
	}
	return Columns{
		EntryDate: entry,
		Store:     idx[0],
		CNPJ:      idx[1],
		CPF:       idx[2],
		Status:    idx[3],
		Ticket:    idx[4],
		Group:     FindColumn(headers, groupSpec),
	}, nil
}

// InferProposalColumns resolves the fields needed to build proposal facts.
// entryDateHeader names the entry date column. Proposal id, entry date and
// status are required; the store is required unless a CNPJ column can stand
// in for it.
func InferProposalColumns(headers []string, entryDateHeader string) (ProposalColumns, error) {
	pc := ProposalColumns{
		ProposalID: FindColumn(headers, proposalIDSpec),
		Status:     FindColumn(headers, statusSpec),
		Store:      FindColumn(headers, storeSpec),
		CNPJ:       FindColumn(headers, cnpjSpec),
		Finalized:  FindColumn(headers, finalizedSpec),
		Ticket:     FindColumn(headers, ticketSpec),
	}
	if pc.EntryDate = IndexOf(headers, entryDateHeader); pc.EntryDate == Missing {
		return ProposalColumns{}, EntryDateNotFound(entryDateHeader)
	}

	switch {
	case pc.ProposalID == Missing:
		return ProposalColumns{}, notFound(proposalIDSpec)
	case pc.Status == Missing:
		return ProposalColumns{}, notFound(statusSpec)
	case pc.Store == Missing && pc.CNPJ == Missing:
		return ProposalColumns{}, notFound(storeSpec)
	}
	if pc.Finalized == pc.EntryDate {
		pc.Finalized = Missing
	}
	return pc, nil
}

func excluded(label string, phrases []string) bool {
	for _, p := range phrases {
		if textnorm.HasPhrase(label, p) {
			return true
		}
	}
	return false
}

// EntryDateNotFound reports that no entry date column could be picked.
// header is the explicit or fallback name that was looked up, if any.
func EntryDateNotFound(header string) *core.ColumnNotFoundError {
	tried := append([]string(nil), monthDatePositive...)
	if header != "" {
		tried = append(tried, header)
	}
	return &core.ColumnNotFoundError{Field: FieldEntryDate, Tried: tried}
}

func notFound(s Spec) *core.ColumnNotFoundError {
	return &core.ColumnNotFoundError{Field: s.Field, Tried: append([]string(nil), s.Patterns...)}
}
