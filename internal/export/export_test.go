package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"campanha/internal/catalog"
	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

func TestRender(t *testing.T) {
	stores := []snapshot.StoreMetrics{
		{Store: "LOJA 01 — CURITIBA CENTRO", ApprovedTotal: 60, RejectedTotal: 20, SubmittedTotal: 90, ApprovalRateTotal: 0.75},
		{Store: "Sem Loja", ApprovedTotal: 2, SubmittedTotal: 2, ApprovalRateTotal: 1},
	}
	in := Input{
		Title:       "Campanha Dezembro",
		PublishID:   "p-1",
		PublishedAt: time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
		Snapshot:    snapshot.Snapshot{Stores: stores},
		Truthline:   truthline.Build(stores, catalog.Default(nil)),
	}

	data, err := Render(in)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 || sheets[0] != SheetStores || sheets[1] != SheetGroups || sheets[2] != SheetIntegrity {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(SheetStores)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if rows[0][0] != "Campanha Dezembro" || rows[1][1] != "p-1" {
		t.Errorf("title rows = %v", rows[:2])
	}
	if rows[4][0] != "LOJA 01 — CURITIBA CENTRO" || rows[4][1] != "A" || rows[4][2] != "60" || rows[4][8] != "120" {
		t.Errorf("store row = %v", rows[4])
	}
	if got, _ := f.GetCellValue(SheetStores, "I6"); got != "" {
		t.Errorf("unknown store target = %q, want blank", got)
	}

	groups, _ := f.GetRows(SheetGroups)
	// header, A, B, C, unmapped, total
	if len(groups) != 6 || groups[4][0] != "Sem grupo" || groups[5][0] != "Total" || groups[5][3] != "62" {
		t.Errorf("group rows = %v", groups)
	}

	status, _ := f.GetCellValue(SheetIntegrity, "B1")
	if status != "OK" {
		t.Errorf("integrity status = %q", status)
	}
}
