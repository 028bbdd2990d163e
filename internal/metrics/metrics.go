// Package metrics computes the headline numbers of one uploaded file:
// totals, comparative deltas anchored on the file's last day, per-store
// summaries with pending breakdowns and rankings.
package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"campanha/internal/catalog"
	"campanha/internal/columns"
	"campanha/internal/core"
	"campanha/internal/csvio"
	"campanha/internal/normalize"
)

// Input is one uploaded file.
type Input struct {
	UploadedAt time.Time
	Table      *csvio.Table
}

// Config carries the lookups Compute depends on.
type Config struct {
	Catalog  *catalog.Catalog
	Location *time.Location
	// EntryDateHeader names the entry date column; empty means resolved
	// with normalize.ResolveEntryDate.
	EntryDateHeader   string
	FallbackDateField string
}

// Payload is the result of Compute.
type Payload struct {
	UploadedAt time.Time               `json:"uploadedAt"`
	FirstDay   core.Date               `json:"firstDay"`
	LastDay    core.Date               `json:"lastDay"`
	Headline   Headline                `json:"headline"`
	Deltas     Deltas                  `json:"deltas"`
	Stores     map[string]StoreSummary `json:"stores"`
	Rankings   Rankings                `json:"rankings"`
	Rows       normalize.RowStats      `json:"rows"`
}

type Headline struct {
	TotalApproved      int              `json:"totalApproved"`
	TotalRejected      int              `json:"totalRejected"`
	TotalPending       int              `json:"totalPending"`
	TotalSubmitted     int              `json:"totalSubmitted"`
	ApprovedYesterday  int              `json:"approvedYesterday"`
	SubmittedYesterday int              `json:"submittedYesterday"`
	ApprovalRate       *float64         `json:"approvalRate"`
	AverageTicket      *decimal.Decimal `json:"averageTicket"`
}

// Delta compares approvals on the last day with a reference day.
type Delta struct {
	Reference core.Date `json:"reference"`
	Current   int       `json:"current"`
	Previous  int       `json:"previous"`
	Change    int       `json:"change"`
	Pct       *float64  `json:"pct"`
}

// Deltas holds the comparisons. Year is nil unless the data spans at least
// a year.
type Deltas struct {
	Day   Delta  `json:"day"`
	Week  Delta  `json:"week"`
	Month Delta  `json:"month"`
	Year  *Delta `json:"year,omitempty"`
}

type StoreSummary struct {
	Store             string                 `json:"store"`
	Group             string                 `json:"group"`
	Approved          int                    `json:"approved"`
	Rejected          int                    `json:"rejected"`
	Pending           int                    `json:"pending"`
	Submitted         int                    `json:"submitted"`
	Decided           int                    `json:"decided"`
	ApprovedYesterday int                    `json:"approvedYesterday"`
	ApprovalRate      *float64               `json:"approvalRate"`
	PendingBreakdown  map[core.RowStatus]int `json:"pendingBreakdown"`
	DominantPending   core.RowStatus         `json:"dominantPending,omitempty"`
	ManagerMessage    string                 `json:"managerMessage,omitempty"`
	AverageTicket     *decimal.Decimal       `json:"averageTicket"`
}

type RankEntry struct {
	Position     int      `json:"position"`
	Name         string   `json:"name"`
	Approved     int      `json:"approved"`
	Submitted    int      `json:"submitted"`
	ApprovalRate *float64 `json:"approvalRate"`
}

type Rankings struct {
	Stores []RankEntry `json:"stores"`
	Groups []RankEntry `json:"groups"`
}

// yearSpanDays is the minimum span for a year-over-year comparison.
const yearSpanDays = 365

// Compute aggregates the table. It fails with a column error when a
// required column is missing and with NO_DATED_ROWS when no row carries a
// valid entry date.
func Compute(in Input, cfg Config) (*Payload, error) {
	if in.Table == nil {
		return nil, core.NewDatasetError(core.CodeEmptyFile, "no table to aggregate")
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default(nil)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	header := cfg.EntryDateHeader
	if header == "" {
		res, ok := normalize.ResolveEntryDate(in.Table.Headers, in.Table.Rows, cfg.FallbackDateField)
		if !ok {
			return nil, columns.EntryDateNotFound(cfg.FallbackDateField)
		}
		header = res.Header
	}
	cols, err := columns.InferColumns(in.Table.Headers, header)
	if err != nil {
		return nil, err
	}
	rows, stats := normalize.NormalizeRows(in.Table, cols, cfg.Catalog, cfg.Location)
	if len(rows) == 0 {
		return nil, core.NewDatasetError(core.CodeNoDatedRows, "no row has a valid entry date").
			WithDetail("invalidDate", stats.InvalidDate).
			WithDetail("column", in.Table.Headers[cols.EntryDate])
	}
	return aggregate(in.UploadedAt, rows, stats), nil
}

func aggregate(uploadedAt time.Time, rows []core.NormalizedRow, stats normalize.RowStats) *Payload {
	first, last := rows[0].EntryDate, rows[0].EntryDate
	for _, r := range rows[1:] {
		if r.EntryDate.Less(first) {
			first = r.EntryDate
		}
		if last.Less(r.EntryDate) {
			last = r.EntryDate
		}
	}

	approvedByDay := make(map[string]int)
	stores := make(map[string]*storeAcc)
	groups := make(map[string]*counter)
	total := &counter{}
	var tickets ticketAcc

	for _, r := range rows {
		sa, ok := stores[r.Store]
		if !ok {
			sa = &storeAcc{group: r.Group, reasons: make(map[core.RowStatus]int)}
			stores[r.Store] = sa
		}
		gk := catalog.GroupLabelFromKey(r.Group)
		ga, ok := groups[gk]
		if !ok {
			ga = &counter{}
			groups[gk] = ga
		}

		yesterday := r.EntryDate.Equal(last.Time)
		total.add(r.Status, yesterday)
		sa.add(r.Status, yesterday)
		ga.add(r.Status, yesterday)
		if r.Status.IsPending() {
			sa.reasons[r.Status]++
		}
		if r.Status == core.StatusAprovado {
			approvedByDay[r.EntryDate.ISO()]++
		}
		if r.Ticket.Valid && r.Ticket.Decimal.IsPositive() {
			tickets.add(r.Ticket.Decimal)
			sa.tickets.add(r.Ticket.Decimal)
		}
	}

	p := &Payload{
		UploadedAt: uploadedAt,
		FirstDay:   first,
		LastDay:    last,
		Headline: Headline{
			TotalApproved:      total.approved,
			TotalRejected:      total.rejected,
			TotalPending:       total.pending,
			TotalSubmitted:     total.submitted,
			ApprovedYesterday:  total.approvedYesterday,
			SubmittedYesterday: total.submittedYesterday,
			ApprovalRate:       total.rate(),
			AverageTicket:      tickets.average(),
		},
		Deltas: Deltas{
			Day:   delta(approvedByDay, last, last.AddDays(-1)),
			Week:  delta(approvedByDay, last, last.AddDays(-7)),
			Month: delta(approvedByDay, last, last.AddMonths(-1)),
		},
		Stores: make(map[string]StoreSummary, len(stores)),
		Rows:   stats,
	}
	if last.DaysSince(first) >= yearSpanDays {
		y := delta(approvedByDay, last, last.AddYears(-1))
		p.Deltas.Year = &y
	}

	for name, sa := range stores {
		p.Stores[name] = sa.summary(name)
	}

	storeCounters := make(map[string]*counter, len(stores))
	for name, sa := range stores {
		storeCounters[name] = &sa.counter
	}
	p.Rankings = Rankings{
		Stores: rank(storeCounters),
		Groups: rank(groups),
	}
	return p
}

func delta(approvedByDay map[string]int, last, ref core.Date) Delta {
	cur, prev := approvedByDay[last.ISO()], approvedByDay[ref.ISO()]
	d := Delta{Reference: ref, Current: cur, Previous: prev, Change: cur - prev}
	if prev > 0 {
		pct := float64(cur-prev) / float64(prev) * 100
		d.Pct = &pct
	}
	return d
}

// rank orders by approved descending, then name ascending.
func rank(counters map[string]*counter) []RankEntry {
	out := make([]RankEntry, 0, len(counters))
	for name, c := range counters {
		out = append(out, RankEntry{Name: name, Approved: c.approved, Submitted: c.submitted, ApprovalRate: c.rate()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Approved != out[j].Approved {
			return out[i].Approved > out[j].Approved
		}
		return out[i].Name < out[j].Name
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
