// Package normalize turns raw CSV cells into typed rows and proposal facts.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"campanha/internal/catalog"
	"campanha/internal/columns"
	"campanha/internal/core"
	"campanha/internal/csvio"
)

// RowStats counts what happened to the data rows of one table.
type RowStats struct {
	Total       int `json:"total"`
	Kept        int `json:"kept"`
	Dropped     int `json:"dropped"`
	InvalidDate int `json:"invalidDate"`
	InvalidID   int `json:"invalidId,omitempty"`
	InvalidCNPJ int `json:"invalidCnpj,omitempty"`
	DuplicateID int `json:"duplicateId,omitempty"`
	NoStore     int `json:"noStore"`
}

// Options tune NormalizeProposals.
type Options struct {
	// EntryDateHeader names the entry date column; empty means resolved
	// with ResolveEntryDate.
	EntryDateHeader string
	// FallbackDateField is the column used when nothing can be resolved.
	FallbackDateField string
	// StrictCNPJ drops rows whose CNPJ cell is filled but malformed.
	StrictCNPJ bool
}

// ResolveEntryDate picks the column holding each row's entry date with
// the month date resolver, and falls back to the column named fallback.
// Every path that buckets rows by day goes through it.
func ResolveEntryDate(headers []string, rows [][]string, fallback string) (columns.Resolution, bool) {
	if res, ok := columns.ResolveMonthDateField(headers, rows, IsDate); ok {
		return res, true
	}
	idx := columns.IndexOf(headers, fallback)
	if idx == columns.Missing {
		return columns.Resolution{Index: columns.Missing}, false
	}
	return columns.Resolution{Header: headers[idx], Index: idx, Strategy: columns.StrategyDefault}, true
}

// NormalizeRows builds the rows consumed by the metrics aggregator. Rows
// without a parseable entry date are dropped and counted.
func NormalizeRows(table *csvio.Table, cols columns.Columns, cat *catalog.Catalog, loc *time.Location) ([]core.NormalizedRow, RowStats) {
	stats := RowStats{Total: len(table.Rows)}
	out := make([]core.NormalizedRow, 0, len(table.Rows))

	for _, row := range table.Rows {
		entry, ok := ParseDate(table.Cell(row, cols.EntryDate), loc)
		if !ok {
			stats.InvalidDate++
			continue
		}

		cnpj := CNPJDigits(table.Cell(row, cols.CNPJ))
		store := core.NoStoreLabel
		if s := cat.ResolveStore(table.Cell(row, cols.Store), cnpj); s != nil {
			store = *s
		} else {
			stats.NoStore++
		}

		group := resolveGroupKey(cat, store, table.Cell(row, cols.Group))
		if group == catalog.GroupUnknown {
			group = ""
		}

		out = append(out, core.NormalizedRow{
			EntryDate: entry,
			Store:     store,
			Group:     group,
			Status:    ClassifyStatus(table.Cell(row, cols.Status)),
			CPF:       table.Cell(row, cols.CPF),
			CNPJ:      cnpj,
			Ticket:    nullTicket(table.Cell(row, cols.Ticket)),
		})
	}

	stats.Kept = len(out)
	stats.Dropped = stats.Total - stats.Kept
	return out, stats
}

// NormalizeProposals builds proposal facts. Rows without a numeric
// proposal id or a parseable entry date are dropped; a repeated proposal id
// keeps its first occurrence. A fact's group comes from the catalog alone,
// the attribution the truthline uses. The error is non-nil only when a
// required column is missing.
func NormalizeProposals(table *csvio.Table, opts Options, cat *catalog.Catalog, loc *time.Location) ([]core.ProposalFact, RowStats, error) {
	header := opts.EntryDateHeader
	if header == "" {
		res, ok := ResolveEntryDate(table.Headers, table.Rows, opts.FallbackDateField)
		if !ok {
			return nil, RowStats{}, columns.EntryDateNotFound(opts.FallbackDateField)
		}
		header = res.Header
	}
	pc, err := columns.InferProposalColumns(table.Headers, header)
	if err != nil {
		return nil, RowStats{}, err
	}

	stats := RowStats{Total: len(table.Rows)}
	out := make([]core.ProposalFact, 0, len(table.Rows))
	seen := make(map[int64]struct{}, len(table.Rows))

	for _, row := range table.Rows {
		id, ok := ParseProposalID(table.Cell(row, pc.ProposalID))
		if !ok {
			stats.InvalidID++
			continue
		}
		rawCNPJ := table.Cell(row, pc.CNPJ)
		if opts.StrictCNPJ && rawCNPJ != "" && !ValidCNPJ(rawCNPJ) {
			stats.InvalidCNPJ++
			continue
		}
		entry, ok := ParseDate(table.Cell(row, pc.EntryDate), loc)
		if !ok {
			stats.InvalidDate++
			continue
		}
		if _, dup := seen[id]; dup {
			stats.DuplicateID++
			continue
		}
		seen[id] = struct{}{}

		cnpj := CNPJDigits(rawCNPJ)
		store := cat.ResolveStore(table.Cell(row, pc.Store), cnpj)
		group := core.NoGroupLabel
		if store == nil {
			stats.NoStore++
		} else {
			group = catalog.GroupLabelFromKey(cat.GroupFor(*store))
		}

		var finalized *core.Date
		if d, ok := ParseDate(table.Cell(row, pc.Finalized), loc); ok {
			finalized = &d
		}

		f := core.NewProposalFact(id, store, group, ClassifyStatus(table.Cell(row, pc.Status)), entry, finalized)
		if len(cnpj) == 14 {
			f.CNPJ = cnpj
		}
		f.Ticket = nullTicket(table.Cell(row, pc.Ticket))
		out = append(out, f)
	}

	stats.Kept = len(out)
	stats.Dropped = stats.Total - stats.Kept
	return out, stats, nil
}

// resolveGroupKey prefers the catalog and falls back to an explicit group
// cell for stores the catalog does not know.
func resolveGroupKey(cat *catalog.Catalog, store, groupCell string) string {
	if g := cat.GroupFor(store); g != catalog.GroupUnknown {
		return g
	}
	if g := catalog.NormalizeGroupKey(strings.TrimSpace(groupCell)); g != "" {
		return g
	}
	return catalog.GroupUnknown
}

func nullTicket(s string) decimal.NullDecimal {
	d, ok := ParseTicket(s)
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}
