// Package export renders a published snapshot as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

const (
	SheetStores    = "Lojas"
	SheetGroups    = "Grupos"
	SheetIntegrity = "Integridade"
)

type Input struct {
	Title       string
	PublishID   string
	PublishedAt time.Time
	Snapshot    snapshot.Snapshot
	Truthline   truthline.Report
}

// Render builds the workbook: one sheet of stores, one of groups with the
// unmapped and global lines, and one with the integrity diffs.
func Render(in Input) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetStores); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetGroups, SheetIntegrity} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	w := sheetWriter{f: f, bold: bold, pct: pct}
	w.stores(in)
	w.groups(in.Truthline)
	w.integrity(in)
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so the row helpers stay linear.
type sheetWriter struct {
	f    *excelize.File
	bold int
	pct  int
	err  error
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("write %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) header(sheet string, n int, values ...any) {
	w.row(sheet, n, values...)
	if w.err != nil {
		return
	}
	end, _ := excelize.CoordinatesToCellName(len(values), n)
	start, _ := excelize.CoordinatesToCellName(1, n)
	w.err = w.f.SetCellStyle(sheet, start, end, w.bold)
}

func (w *sheetWriter) percentColumn(sheet string, col, from, to int) {
	if w.err != nil || to < from {
		return
	}
	start, _ := excelize.CoordinatesToCellName(col, from)
	end, _ := excelize.CoordinatesToCellName(col, to)
	w.err = w.f.SetCellStyle(sheet, start, end, w.pct)
}

func (w *sheetWriter) stores(in Input) {
	byName := make(map[string]truthline.StoreResult, len(in.Truthline.Stores))
	for _, s := range in.Truthline.Stores {
		byName[s.Store] = s
	}

	w.row(SheetStores, 1, in.Title)
	w.row(SheetStores, 2, "Publicação", in.PublishID, in.PublishedAt.Format(time.RFC3339))
	w.header(SheetStores, 4, "Loja", "Grupo", "Aprovadas", "Reprovadas", "Outras", "Enviadas",
		"Aprovadas ontem", "Taxa de aprovação", "Meta mensal", "% da meta")

	n := 5
	for _, s := range in.Snapshot.Stores {
		tr := byName[s.Store]
		w.row(SheetStores, n, s.Store, tr.GroupCode, s.ApprovedTotal, s.RejectedTotal, s.OtherTotal,
			s.SubmittedTotal, s.ApprovedYesterday, s.ApprovalRateTotal, intOrBlank(tr.MonthlyTarget), floatOrBlank(tr.MonthlyRatio))
		n++
	}
	w.percentColumn(SheetStores, 8, 5, n-1)
	w.percentColumn(SheetStores, 10, 5, n-1)
}

func (w *sheetWriter) groups(r truthline.Report) {
	w.header(SheetGroups, 1, "Grupo", "Lojas", "Aprovadas ontem", "Aprovadas", "Meta mensal", "% da meta")
	n := 2
	line := func(label string, t truthline.Totals) {
		w.row(SheetGroups, n, label, t.StoreCount, t.ApprovedYesterday, t.ApprovedTotal, t.MonthlyTarget, floatOrBlank(t.MonthlyRatio))
		n++
	}
	for _, g := range r.Groups {
		line(g.Label, g.Totals)
	}
	if r.Unmapped.StoreCount > 0 {
		line("Sem grupo", r.Unmapped)
	}
	line("Total", r.Global.Totals)
	w.percentColumn(SheetGroups, 6, 2, n-1)
}

func (w *sheetWriter) integrity(in Input) {
	ic := in.Truthline.Integrity
	status := "OK"
	if !ic.OK {
		status = "DIVERGENTE"
	}
	w.row(SheetIntegrity, 1, "Status", status)
	w.row(SheetIntegrity, 2, "Tolerância", ic.Epsilon)
	w.header(SheetIntegrity, 4, "Comparação", "Aprovadas ontem", "Aprovadas", "Meta mensal")
	for i, d := range []struct {
		name string
		diff truthline.Diff
	}{
		{"Lojas x Grupos", ic.StoresVsGroups},
		{"Lojas x Total", ic.StoresVsGlobal},
		{"Grupos x Total", ic.GroupsVsGlobal},
	} {
		w.row(SheetIntegrity, 5+i, d.name, d.diff.ApprovedYesterday, d.diff.ApprovedTotal, d.diff.MonthlyTarget)
	}
}

func intOrBlank(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrBlank(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
