package documents

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"campanha/internal/catalog"
	"campanha/internal/columns"
	"campanha/internal/monthly"
	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

func sampleSnapshot() SnapshotDocument {
	stores := []snapshot.StoreMetrics{{Store: "Alpha", ApprovedTotal: 3, SubmittedTotal: 4, ApprovalRateTotal: 0.75}}
	return SnapshotDocument{
		SchemaVersion: SnapshotSchema,
		PublishID:     uuid.NewString(),
		PublishedAt:   time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC),
		Source:        Source{Filename: "dezembro.csv", TotalRows: 4, KeptRows: 4},
		Snapshot:      snapshot.Snapshot{Stores: stores},
		Truthline:     truthline.Build(stores, catalog.Default(nil)),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	doc := sampleSnapshot()
	b, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeSnapshot(b)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if got.PublishID != doc.PublishID || got.Snapshot.Stores[0].ApprovedTotal != 3 {
		t.Errorf("decoded = %+v", got)
	}
	if !got.Truthline.Integrity.OK {
		t.Errorf("integrity lost in round trip")
	}
}

func TestDecodeUnknownSchema(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"other version", `{"schemaVersion":"campaign-snapshot/v2"}`},
		{"missing version", `{"publishId":"x"}`},
		{"other document", `{"schemaVersion":"campaign-monthly-index/v1","months":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSnapshot([]byte(tt.body))
			if !errors.Is(err, ErrUnknownSchema) {
				t.Errorf("error = %v, want ErrUnknownSchema", err)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := DecodeSnapshot([]byte("not json")); !errors.Is(err, ErrInvalid) {
		t.Errorf("garbage error = %v", err)
	}
	if _, err := DecodeSnapshot([]byte(`{"schemaVersion":"campaign-snapshot/v1","publishId":"nope"}`)); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad publish id error = %v", err)
	}
}

func TestEncodeRejectsWrongVersion(t *testing.T) {
	doc := sampleSnapshot()
	doc.SchemaVersion = "campaign-snapshot/v0"
	if _, err := Encode(doc); !errors.Is(err, ErrInvalid) {
		t.Errorf("Encode() error = %v, want ErrInvalid", err)
	}
}

func TestMonthlySnapshotRoundTrip(t *testing.T) {
	doc := MonthlySnapshotDocument{
		SchemaVersion: MonthlySnapshotSchema,
		PublishID:     uuid.NewString(),
		PublishedAt:   time.Now().UTC(),
		Period:        "2025-11",
		Audit: monthly.Audit{
			Period:    "2025-11",
			DateField: "Data Cadastro",
			Strategy:  columns.StrategyKeywordMatch,
			TotalRows: 10,
			KeptRows:  9,
		},
	}
	b, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, err := DecodeMonthlySnapshot(b)
	if err != nil {
		t.Fatalf("DecodeMonthlySnapshot() error = %v", err)
	}
	if got.Period != "2025-11" || got.Audit.Strategy != columns.StrategyKeywordMatch {
		t.Errorf("decoded = %+v", got)
	}
	if _, err := DecodeSnapshot(b); !errors.Is(err, ErrUnknownSchema) {
		t.Errorf("monthly document decoded as current snapshot: %v", err)
	}
}

func TestMonthlyIndexUpsert(t *testing.T) {
	idx := NewMonthlyIndex()
	for _, p := range []string{"2025-11", "2025-09", "2025-10"} {
		idx.Upsert(MonthlyIndexEntry{Period: p, Key: MonthlyKey(p), PublishID: "a"})
	}
	idx.Upsert(MonthlyIndexEntry{Period: "2025-10", Key: MonthlyKey("2025-10"), PublishID: "b", Approved: 7})

	if len(idx.Months) != 3 {
		t.Fatalf("months = %+v", idx.Months)
	}
	for i, want := range []string{"2025-09", "2025-10", "2025-11"} {
		if idx.Months[i].Period != want {
			t.Errorf("months[%d] = %s, want %s", i, idx.Months[i].Period, want)
		}
	}
	e, ok := idx.Find("2025-10")
	if !ok || e.PublishID != "b" || e.Approved != 7 {
		t.Errorf("Find() = %+v, %v", e, ok)
	}
	if _, ok := idx.Find("2024-01"); ok {
		t.Errorf("Find() found a missing period")
	}

	b, err := Encode(idx)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	back, err := DecodeMonthlyIndex(b)
	if err != nil || len(back.Months) != 3 {
		t.Fatalf("DecodeMonthlyIndex() = %+v, %v", back, err)
	}
}

func TestKeys(t *testing.T) {
	if got := MonthlyKey("2025-12"); got != "campaign/monthly/2025-12.json" {
		t.Errorf("MonthlyKey() = %s", got)
	}
	if got := ExportKey("abc"); got != "campaign/exports/abc.xlsx" {
		t.Errorf("ExportKey() = %s", got)
	}
}
