package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "campanha"

// Metrics records pipeline outcomes. A nil *Metrics records nothing.
type Metrics struct {
	publishes     metric.Int64Counter
	rowsKept      metric.Int64Counter
	rowsDropped   metric.Int64Counter
	datasetErrors metric.Int64Counter
	exports       metric.Int64Counter
	integrity     metric.Int64Gauge
}

// NewMetrics builds the instruments on meter, or on the global provider when
// meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}
	m := &Metrics{}
	var err error
	if m.publishes, err = meter.Int64Counter("campanha.publishes.total",
		metric.WithDescription("Published campaign documents by kind and integrity outcome")); err != nil {
		return nil, err
	}
	if m.rowsKept, err = meter.Int64Counter("campanha.rows.kept",
		metric.WithDescription("Rows kept after normalization")); err != nil {
		return nil, err
	}
	if m.rowsDropped, err = meter.Int64Counter("campanha.rows.dropped",
		metric.WithDescription("Rows dropped during normalization by reason")); err != nil {
		return nil, err
	}
	if m.datasetErrors, err = meter.Int64Counter("campanha.dataset.errors",
		metric.WithDescription("Rejected uploads by error code")); err != nil {
		return nil, err
	}
	if m.exports, err = meter.Int64Counter("campanha.exports.total",
		metric.WithDescription("Rendered XLSX exports by outcome")); err != nil {
		return nil, err
	}
	if m.integrity, err = meter.Int64Gauge("campanha.integrity.ok",
		metric.WithDescription("Integrity status of the latest publish (1=ok, 0=mismatch)")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordPublish(ctx context.Context, kind string, integrityOK bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.Bool("integrity_ok", integrityOK))
	m.publishes.Add(ctx, 1, attrs)
	var v int64
	if integrityOK {
		v = 1
	}
	m.integrity.Record(ctx, v, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRows adds the kept count and each non-zero drop reason.
func (m *Metrics) RecordRows(ctx context.Context, kind string, kept int, dropped map[string]int) {
	if m == nil {
		return
	}
	m.rowsKept.Add(ctx, int64(kept), metric.WithAttributes(attribute.String("kind", kind)))
	for reason, n := range dropped {
		if n == 0 {
			continue
		}
		m.rowsDropped.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("reason", reason),
		))
	}
}

func (m *Metrics) RecordDatasetError(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.datasetErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *Metrics) RecordExport(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	m.exports.Add(ctx, 1, metric.WithAttributes(attribute.Bool("ok", ok)))
}
