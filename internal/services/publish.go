package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"campanha/internal/amqp"
	"campanha/internal/blob"
	"campanha/internal/columns"
	"campanha/internal/core"
	"campanha/internal/csvio"
	"campanha/internal/documents"
	clog "campanha/internal/log"
	"campanha/internal/metrics"
	"campanha/internal/monthly"
	"campanha/internal/normalize"
	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

// Upload is a raw CSV file.
type Upload struct {
	Filename string
	Data     []byte
}

type PublishResult struct {
	PublishID string                      `json:"publishId"`
	Key       string                      `json:"key"`
	Document  *documents.SnapshotDocument `json:"document"`
	// Metrics is nil when the file lacks the columns metrics need.
	Metrics *metrics.Payload   `json:"metrics,omitempty"`
	Rows    normalize.RowStats `json:"rows"`
}

type MonthlyRequest struct {
	Upload
	Year      int
	Month     int
	Overwrite bool
}

type MonthlyResult struct {
	PublishID string                             `json:"publishId"`
	Key       string                             `json:"key"`
	Document  *documents.MonthlySnapshotDocument `json:"document"`
}

func (s *CampaignService) parse(ctx context.Context, up Upload) (*csvio.Table, error) {
	table, err := csvio.ParseCSV(up.Data)
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}
	s.logger.DebugContext(ctx, "Upload parsed",
		"filename", up.Filename,
		clog.FieldEncoding, table.Meta.Encoding,
		clog.FieldDelimiter, table.Meta.Delimiter,
		clog.FieldRowsTotal, len(table.Rows))
	return table, nil
}

func (s *CampaignService) rejected(ctx context.Context, err error) {
	if de, ok := core.AsDatasetError(err); ok {
		s.metrics.RecordDatasetError(ctx, string(de.Code))
	}
}

func source(up Upload, t *csvio.Table, date columns.Resolution, kept int) documents.Source {
	return documents.Source{
		Filename:     up.Filename,
		Encoding:     t.Meta.Encoding,
		Delimiter:    t.Meta.Delimiter,
		HeaderRow:    t.Meta.HeaderRow,
		DateField:    date.Header,
		DateStrategy: string(date.Strategy),
		TotalRows:    len(t.Rows),
		KeptRows:     kept,
	}
}

// entryDate picks the entry date column once per upload so the snapshot
// and the metrics of a file share it.
func (s *CampaignService) entryDate(ctx context.Context, table *csvio.Table) (columns.Resolution, error) {
	res, ok := normalize.ResolveEntryDate(table.Headers, table.Rows, s.campaign.FallbackDateField)
	if !ok {
		err := columns.EntryDateNotFound(s.campaign.FallbackDateField)
		s.rejected(ctx, err)
		return res, err
	}
	s.logger.DebugContext(ctx, "Entry date column resolved",
		"date_field", res.Header,
		"strategy", string(res.Strategy))
	return res, nil
}

// ComputeMetrics aggregates an upload and stores the payload as the latest
// metrics document.
func (s *CampaignService) ComputeMetrics(ctx context.Context, up Upload) (*metrics.Payload, error) {
	table, err := s.parse(ctx, up)
	if err != nil {
		return nil, err
	}
	date, err := s.entryDate(ctx, table)
	if err != nil {
		return nil, err
	}
	payload, err := s.computeMetrics(table, date.Header)
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}
	s.metrics.RecordRows(ctx, "metrics", payload.Rows.Kept, dropReasons(payload.Rows))

	doc := documents.MetricsDocument{
		SchemaVersion: documents.MetricsSchema,
		ComputedAt:    payload.UploadedAt,
		Source:        source(up, table, date, payload.Rows.Kept),
		Metrics:       payload,
	}
	if err := s.writeDocument(ctx, documents.MetricsKey, doc, true); err != nil {
		return nil, fmt.Errorf("store metrics: %w", err)
	}
	return payload, nil
}

func (s *CampaignService) computeMetrics(table *csvio.Table, entryDateHeader string) (*metrics.Payload, error) {
	return metrics.Compute(
		metrics.Input{UploadedAt: s.now().UTC(), Table: table},
		metrics.Config{Catalog: s.catalog, Location: s.campaign.Location, EntryDateHeader: entryDateHeader},
	)
}

// Publish computes the snapshot and truthline of an upload and replaces the
// current snapshot. Metrics are computed alongside when the file carries
// their columns.
func (s *CampaignService) Publish(ctx context.Context, up Upload) (*PublishResult, error) {
	table, err := s.parse(ctx, up)
	if err != nil {
		return nil, err
	}
	date, err := s.entryDate(ctx, table)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var (
		snap    snapshot.Snapshot
		report  truthline.Report
		stats   normalize.RowStats
		payload *metrics.Payload
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		facts, st, err := normalize.NormalizeProposals(table, normalize.Options{EntryDateHeader: date.Header}, s.catalog, s.campaign.Location)
		if err != nil {
			return err
		}
		if len(facts) == 0 {
			return core.NewDatasetError(core.CodeNoValidRows, "no row has a proposal id and a valid entry date").
				WithDetail("totalRows", st.Total)
		}
		stats = st
		snap = snapshot.Compute(facts, snapshot.Options{Now: now, Campaign: s.campaign})
		report = truthline.Build(snap.Stores, s.catalog)
		return nil
	})
	g.Go(func() error {
		p, err := s.computeMetrics(table, date.Header)
		if _, isDataset := core.AsDatasetError(err); isDataset {
			s.logger.DebugContext(ctx, "Metrics skipped for publish", clog.FieldError, err.Error())
			return nil
		}
		payload = p
		return err
	})
	if err := g.Wait(); err != nil {
		s.rejected(ctx, err)
		return nil, err
	}
	s.metrics.RecordRows(ctx, amqp.KindSnapshot, stats.Kept, dropReasons(stats))

	publishID := uuid.NewString()
	doc := &documents.SnapshotDocument{
		SchemaVersion: documents.SnapshotSchema,
		PublishID:     publishID,
		PublishedAt:   now.UTC(),
		Source:        source(up, table, date, stats.Kept),
		Snapshot:      snap,
		Truthline:     report,
	}
	if err := s.writeDocument(ctx, documents.SnapshotKey, doc, true); err != nil {
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	if payload != nil {
		mdoc := documents.MetricsDocument{
			SchemaVersion: documents.MetricsSchema,
			ComputedAt:    payload.UploadedAt,
			Source:        doc.Source,
			Metrics:       payload,
		}
		if err := s.writeDocument(ctx, documents.MetricsKey, mdoc, true); err != nil {
			return nil, fmt.Errorf("store metrics: %w", err)
		}
	}

	s.announce(ctx, amqp.NewSnapshotPublished(publishID, amqp.KindSnapshot, documents.SnapshotKey, "", report.Integrity.OK))
	return &PublishResult{
		PublishID: publishID,
		Key:       documents.SnapshotKey,
		Document:  doc,
		Metrics:   payload,
		Rows:      stats,
	}, nil
}

// PublishMonthly validates a one-month batch and stores it under its
// period. An existing month is kept unless req.Overwrite is set.
func (s *CampaignService) PublishMonthly(ctx context.Context, req MonthlyRequest) (*MonthlyResult, error) {
	if !monthly.ValidPeriod(req.Year, req.Month) {
		err := core.NewDatasetError(core.CodeInvalidPeriod, fmt.Sprintf("invalid period %d-%d", req.Year, req.Month))
		s.rejected(ctx, err)
		return nil, err
	}
	table, err := s.parse(ctx, req.Upload)
	if err != nil {
		return nil, err
	}

	accepted, err := monthly.Validate(monthly.Request{
		Table:         table,
		Year:          req.Year,
		Month:         req.Month,
		Location:      s.campaign.Location,
		FallbackField: s.campaign.FallbackDateField,
		Catalog:       s.catalog,
	})
	if err != nil {
		s.rejected(ctx, err)
		return nil, err
	}
	a := accepted.Audit
	s.metrics.RecordRows(ctx, amqp.KindMonthly, a.KeptRows, map[string]int{
		"invalid_id":   a.DroppedInvalidID,
		"invalid_cnpj": a.DroppedInvalidCNPJ,
		"duplicate_id": a.DroppedDuplicateID,
	})

	now := s.now()
	snap := snapshot.Compute(accepted.Proposals, snapshot.Options{
		Now:      monthFrame(now, req.Year, req.Month, s.campaign.Location),
		Campaign: s.campaign,
	})
	snap.GeneratedAt = now
	report := truthline.Build(snap.Stores, s.catalog)

	publishID := uuid.NewString()
	key := documents.MonthlyKey(a.Period)
	doc := &documents.MonthlySnapshotDocument{
		SchemaVersion: documents.MonthlySnapshotSchema,
		PublishID:     publishID,
		PublishedAt:   now.UTC(),
		Period:        a.Period,
		Audit:         a,
		Snapshot:      snap,
		Truthline:     report,
	}
	if err := s.writeDocument(ctx, key, doc, req.Overwrite); err != nil {
		if errors.Is(err, blob.ErrExists) {
			de := core.NewDatasetError(core.CodeMonthAlreadyPublished,
				fmt.Sprintf("%s is already published; resend with overwrite to replace it", a.Period)).
				WithDetail("period", a.Period)
			s.rejected(ctx, de)
			return nil, de
		}
		return nil, fmt.Errorf("store monthly snapshot: %w", err)
	}

	if err := s.updateIndex(ctx, documents.MonthlyIndexEntry{
		Period:      a.Period,
		Key:         key,
		PublishID:   publishID,
		PublishedAt: now.UTC(),
		Approved:    snap.Summary.TotalApproved,
		Submitted:   snap.Summary.TotalSubmitted,
		IntegrityOK: report.Integrity.OK,
	}); err != nil {
		return nil, fmt.Errorf("update monthly index: %w", err)
	}

	s.announce(ctx, amqp.NewSnapshotPublished(publishID, amqp.KindMonthly, key, a.Period, report.Integrity.OK))
	return &MonthlyResult{PublishID: publishID, Key: key, Document: doc}, nil
}

// updateIndex reads the index from the store, not the cache, since it is
// modified in place.
func (s *CampaignService) updateIndex(ctx context.Context, e documents.MonthlyIndexEntry) error {
	idx := documents.NewMonthlyIndex()
	data, ok, err := s.store.Get(ctx, documents.MonthlyIndexKey)
	if err != nil {
		return err
	}
	if ok {
		decoded, err := documents.DecodeMonthlyIndex(data)
		switch {
		case err == nil:
			idx = decoded
		case errors.Is(err, documents.ErrUnknownSchema):
			s.logger.WarnContext(ctx, "Rebuilding monthly index with unknown schema", clog.FieldError, err.Error())
		default:
			return err
		}
	}
	idx.Upsert(e)
	idx.UpdatedAt = e.PublishedAt
	return s.writeDocument(ctx, documents.MonthlyIndexKey, idx, true)
}

// monthFrame places the weekly window of a historical month on its last
// day; the current month uses now.
func monthFrame(now time.Time, year, month int, loc *time.Location) time.Time {
	last := time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, loc)
	if now.After(last) {
		return last
	}
	return now
}

func dropReasons(st normalize.RowStats) map[string]int {
	return map[string]int{
		"invalid_date": st.InvalidDate,
		"invalid_id":   st.InvalidID,
		"invalid_cnpj": st.InvalidCNPJ,
		"duplicate_id": st.DuplicateID,
	}
}
