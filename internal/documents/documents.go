// Package documents defines the persisted JSON documents and their codecs.
// Every document carries a schemaVersion literal; a document with any other
// version decodes to ErrUnknownSchema and is treated as absent.
package documents

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"campanha/internal/metrics"
	"campanha/internal/monthly"
	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

const (
	SnapshotSchema        = "campaign-snapshot/v1"
	MonthlySnapshotSchema = "campaign-monthly-snapshot/v1"
	MonthlyIndexSchema    = "campaign-monthly-index/v1"
	MetricsSchema         = "campaign-metrics/v1"
)

// Blob keys.
const (
	SnapshotKey     = "campaign/snapshot.json"
	MetricsKey      = "campaign/metrics.json"
	MonthlyIndexKey = "campaign/monthly/index.json"
)

// MonthlyKey is the key of a month's snapshot.
func MonthlyKey(period string) string {
	return "campaign/monthly/" + period + ".json"
}

// ExportKey is the key of the XLSX export of a publish.
func ExportKey(publishID string) string {
	return "campaign/exports/" + publishID + ".xlsx"
}

var (
	ErrUnknownSchema = errors.New("unknown schema version")
	ErrInvalid       = errors.New("invalid document")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Source describes the uploaded file a document was computed from.
// DateField is the column its rows were dated by.
type Source struct {
	Filename     string `json:"filename,omitempty"`
	Encoding     string `json:"encoding,omitempty"`
	Delimiter    string `json:"delimiter,omitempty"`
	HeaderRow    int    `json:"headerRow"`
	DateField    string `json:"dateField,omitempty"`
	DateStrategy string `json:"dateStrategy,omitempty"`
	TotalRows    int    `json:"totalRows" validate:"min=0"`
	KeptRows     int    `json:"keptRows" validate:"min=0"`
}

type SnapshotDocument struct {
	SchemaVersion string            `json:"schemaVersion" validate:"eq=campaign-snapshot/v1"`
	PublishID     string            `json:"publishId" validate:"required,uuid"`
	PublishedAt   time.Time         `json:"publishedAt" validate:"required"`
	Source        Source            `json:"source"`
	Snapshot      snapshot.Snapshot `json:"snapshot"`
	Truthline     truthline.Report  `json:"truthline"`
}

type MonthlySnapshotDocument struct {
	SchemaVersion string            `json:"schemaVersion" validate:"eq=campaign-monthly-snapshot/v1"`
	PublishID     string            `json:"publishId" validate:"required,uuid"`
	PublishedAt   time.Time         `json:"publishedAt" validate:"required"`
	Period        string            `json:"period" validate:"required,len=7"`
	Audit         monthly.Audit     `json:"audit"`
	Snapshot      snapshot.Snapshot `json:"snapshot"`
	Truthline     truthline.Report  `json:"truthline"`
}

type MonthlyIndexDocument struct {
	SchemaVersion string              `json:"schemaVersion" validate:"eq=campaign-monthly-index/v1"`
	UpdatedAt     time.Time           `json:"updatedAt"`
	Months        []MonthlyIndexEntry `json:"months" validate:"dive"`
}

type MonthlyIndexEntry struct {
	Period      string    `json:"period" validate:"required,len=7"`
	Key         string    `json:"key" validate:"required"`
	PublishID   string    `json:"publishId" validate:"required"`
	PublishedAt time.Time `json:"publishedAt"`
	Approved    int       `json:"approved" validate:"min=0"`
	Submitted   int       `json:"submitted" validate:"min=0"`
	IntegrityOK bool      `json:"integrityOk"`
}

type MetricsDocument struct {
	SchemaVersion string           `json:"schemaVersion" validate:"eq=campaign-metrics/v1"`
	ComputedAt    time.Time        `json:"computedAt"`
	Source        Source           `json:"source"`
	Metrics       *metrics.Payload `json:"metrics" validate:"required"`
}

// Encode validates doc and renders it as indented JSON.
func Encode(doc any) ([]byte, error) {
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func DecodeSnapshot(b []byte) (*SnapshotDocument, error) {
	var doc SnapshotDocument
	if err := decode(b, SnapshotSchema, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func DecodeMonthlySnapshot(b []byte) (*MonthlySnapshotDocument, error) {
	var doc MonthlySnapshotDocument
	if err := decode(b, MonthlySnapshotSchema, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func DecodeMonthlyIndex(b []byte) (*MonthlyIndexDocument, error) {
	var doc MonthlyIndexDocument
	if err := decode(b, MonthlyIndexSchema, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func DecodeMetrics(b []byte) (*MetricsDocument, error) {
	var doc MetricsDocument
	if err := decode(b, MetricsSchema, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decode(b []byte, schema string, doc any) error {
	var head struct {
		SchemaVersion string `json:"schemaVersion"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if head.SchemaVersion != schema {
		return fmt.Errorf("%w: got %q, want %q", ErrUnknownSchema, head.SchemaVersion, schema)
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// NewMonthlyIndex returns an empty index.
func NewMonthlyIndex() *MonthlyIndexDocument {
	return &MonthlyIndexDocument{SchemaVersion: MonthlyIndexSchema, Months: []MonthlyIndexEntry{}}
}

// Upsert replaces the entry of e.Period or inserts it, keeping months in
// period order.
func (d *MonthlyIndexDocument) Upsert(e MonthlyIndexEntry) {
	for i, m := range d.Months {
		if m.Period == e.Period {
			d.Months[i] = e
			return
		}
	}
	d.Months = append(d.Months, e)
	for i := len(d.Months) - 1; i > 0 && d.Months[i].Period < d.Months[i-1].Period; i-- {
		d.Months[i], d.Months[i-1] = d.Months[i-1], d.Months[i]
	}
}

// Find returns the entry of period.
func (d *MonthlyIndexDocument) Find(period string) (MonthlyIndexEntry, bool) {
	for _, m := range d.Months {
		if m.Period == period {
			return m, true
		}
	}
	return MonthlyIndexEntry{}, false
}
