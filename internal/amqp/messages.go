package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Kinds of published documents.
const (
	KindSnapshot = "snapshot"
	KindMonthly  = "monthly"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SnapshotPublished announces a document written to the blob store. The
// consumer reads the document back by key.
type SnapshotPublished struct {
	PublishID   string    `json:"publishId" validate:"required"`
	Kind        string    `json:"kind" validate:"required,oneof=snapshot monthly"`
	Key         string    `json:"key" validate:"required"`
	Period      string    `json:"period,omitempty" validate:"required_if=Kind monthly"`
	IntegrityOK bool      `json:"integrityOk"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewSnapshotPublished(publishID, kind, key, period string, integrityOK bool) *SnapshotPublished {
	return &SnapshotPublished{
		PublishID:   publishID,
		Kind:        kind,
		Key:         key,
		Period:      period,
		IntegrityOK: integrityOK,
		Timestamp:   time.Now().UTC(),
	}
}

func (m *SnapshotPublished) ToJSON() ([]byte, error) {
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return json.Marshal(m)
}

// SnapshotPublishedFromJSON decodes and validates a message body.
func SnapshotPublishedFromJSON(data []byte) (*SnapshotPublished, error) {
	var msg SnapshotPublished
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}
