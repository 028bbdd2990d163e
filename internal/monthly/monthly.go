// Package monthly guards the historical month publishing path: a batch is
// accepted only when every row belongs to the claimed calendar month.
package monthly

import (
	"fmt"
	"time"

	"campanha/internal/catalog"
	"campanha/internal/columns"
	"campanha/internal/core"
	"campanha/internal/csvio"
	"campanha/internal/normalize"
)

// MaxDistinctDays bounds the distinct entry days of one month's batch.
const MaxDistinctDays = 31

// Request is one monthly upload.
type Request struct {
	Table    *csvio.Table
	Year     int
	Month    int
	Location *time.Location
	// FallbackField names the date column used when none can be resolved.
	FallbackField string
	Catalog       *catalog.Catalog
}

// Audit records how an accepted batch was read.
type Audit struct {
	Period                              string           `json:"period" validate:"required,len=7"`
	DateField                           string           `json:"dateField" validate:"required"`
	Strategy                            columns.Strategy `json:"strategy" validate:"oneof=keyword_match statistical_fallback default"`
	Pattern                             string           `json:"pattern,omitempty"`
	ParseRate                           float64          `json:"parseRate,omitempty"`
	TotalRows                           int              `json:"totalRows" validate:"min=0"`
	KeptRows                            int              `json:"keptRows" validate:"min=0"`
	DroppedRows                         int              `json:"droppedRows" validate:"min=0"`
	DroppedInvalidID                    int              `json:"droppedInvalidId"`
	DroppedInvalidCNPJ                  int              `json:"droppedInvalidCnpj"`
	DroppedDuplicateID                  int              `json:"droppedDuplicateId"`
	DistinctDays                        int              `json:"distinctDays"`
	SpilloverFinalizedOutsideMonthCount int              `json:"spilloverFinalizedOutsideMonthCount"`
	Encoding                            string           `json:"encoding,omitempty"`
	Delimiter                           string           `json:"delimiter,omitempty"`
}

// Accepted is a validated batch.
type Accepted struct {
	Proposals []core.ProposalFact
	Audit     Audit
}

// Period formats a year and month as yyyy-mm.
func Period(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ValidPeriod reports whether year and month name a plausible campaign
// month.
func ValidPeriod(year, month int) bool {
	return year >= 2000 && year <= 2100 && month >= 1 && month <= 12
}

// Validate checks the batch and builds its proposal facts. Every rejection
// is a *core.DatasetError with its own code, or a column error when a
// required column is missing.
func Validate(req Request) (*Accepted, error) {
	if !ValidPeriod(req.Year, req.Month) {
		return nil, core.NewDatasetError(core.CodeInvalidPeriod,
			fmt.Sprintf("invalid period %d-%d", req.Year, req.Month)).
			WithDetail("year", req.Year).
			WithDetail("month", req.Month)
	}
	if req.Table == nil {
		return nil, core.NewDatasetError(core.CodeNoValidRows, "the batch has no data rows")
	}
	if req.Location == nil {
		req.Location = time.UTC
	}
	if req.Catalog == nil {
		req.Catalog = catalog.Default(nil)
	}
	period := Period(req.Year, req.Month)
	headers := req.Table.Headers

	idCol, err := columns.Require(headers, columns.FieldProposalID)
	if err != nil {
		return nil, err
	}
	cnpjCol := columns.Locate(headers, columns.FieldCNPJ)

	audit := Audit{
		Period:    period,
		TotalRows: len(req.Table.Rows),
		Encoding:  req.Table.Meta.Encoding,
		Delimiter: req.Table.Meta.Delimiter,
	}

	valid := make([][]string, 0, len(req.Table.Rows))
	for _, row := range req.Table.Rows {
		if _, ok := normalize.ParseProposalID(req.Table.Cell(row, idCol)); !ok {
			audit.DroppedInvalidID++
			continue
		}
		if c := req.Table.Cell(row, cnpjCol); c != "" && !normalize.ValidCNPJ(c) {
			audit.DroppedInvalidCNPJ++
			continue
		}
		valid = append(valid, row)
	}
	if len(valid) == 0 {
		return nil, core.NewDatasetError(core.CodeNoValidRows, "no row has a numeric proposal id and a well-formed CNPJ").
			WithDetail("totalRows", audit.TotalRows).
			WithDetail("invalidId", audit.DroppedInvalidID).
			WithDetail("invalidCnpj", audit.DroppedInvalidCNPJ)
	}

	res, ok := normalize.ResolveEntryDate(headers, valid, req.FallbackField)
	if !ok {
		return nil, core.NewDatasetError(core.CodeCadastroFieldNotFound, "could not determine which column holds the cadastro date").
			WithDetail("fallback", req.FallbackField)
	}
	audit.DateField = res.Header
	audit.Strategy = res.Strategy
	audit.Pattern = res.Pattern
	audit.ParseRate = res.ParseRate

	dates := make([]core.Date, len(valid))
	days := make(map[int]struct{})
	for i, row := range valid {
		raw := req.Table.Cell(row, res.Index)
		d, ok := normalize.ParseDate(raw, req.Location)
		if !ok {
			return nil, core.NewDatasetError(core.CodeInvalidCadastroDate,
				fmt.Sprintf("row %d has an invalid %s value %q", i+1, res.Header, raw)).
				WithDetail("row", i+1).
				WithDetail("value", raw)
		}
		dates[i] = d
		days[int(d.Unix()/86400)] = struct{}{}
	}
	if len(days) > MaxDistinctDays {
		return nil, core.NewDatasetError(core.CodeTooManyDistinctDays,
			fmt.Sprintf("the batch spans %d distinct days", len(days))).
			WithDetail("distinctDays", len(days))
	}
	for i, d := range dates {
		if !d.InMonth(req.Year, req.Month) {
			return nil, core.NewDatasetError(core.CodeCadastroOutsideMonth,
				fmt.Sprintf("row %d is dated %s, outside %s", i+1, d.ISO(), period)).
				WithDetail("row", i+1).
				WithDetail("date", d.ISO()).
				WithDetail("period", period)
		}
	}
	audit.DistinctDays = len(days)

	filtered := &csvio.Table{Headers: headers, Rows: valid, Meta: req.Table.Meta}
	proposals, stats, err := normalize.NormalizeProposals(filtered, normalize.Options{EntryDateHeader: res.Header}, req.Catalog, req.Location)
	if err != nil {
		return nil, err
	}

	for _, p := range proposals {
		if p.FinalizedDate != nil && !p.FinalizedDate.InMonth(req.Year, req.Month) {
			audit.SpilloverFinalizedOutsideMonthCount++
		}
	}
	audit.DroppedDuplicateID = stats.DuplicateID
	audit.KeptRows = len(proposals)
	audit.DroppedRows = audit.TotalRows - audit.KeptRows

	return &Accepted{Proposals: proposals, Audit: audit}, nil
}
