package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campanha/internal/amqp"
	"campanha/internal/blob"
	"campanha/internal/cache"
	"campanha/internal/campaign"
	"campanha/internal/catalog"
	"campanha/internal/documents"
	clog "campanha/internal/log"
	"campanha/internal/telemetry"
)

var (
	ErrSnapshotNotFound = errors.New("no snapshot has been published")
	ErrMonthNotFound    = errors.New("month not published")
	ErrMetricsNotFound  = errors.New("no metrics have been computed")
)

// EventPublisher announces stored documents.
type EventPublisher interface {
	PublishSnapshotPublished(ctx context.Context, msg *amqp.SnapshotPublished) error
}

// Clock returns the current instant.
type Clock func() time.Time

type Options struct {
	Store     blob.Store
	Campaign  *campaign.Campaign
	Publisher EventPublisher
	Metrics   *telemetry.Metrics
	Cache     cache.Cache[any]
	Clock     Clock
	Logger    *clog.Logger
}

// CampaignService parses uploads, computes campaign documents, persists them
// and serves them back.
type CampaignService struct {
	store     blob.Store
	campaign  *campaign.Campaign
	catalog   *catalog.Catalog
	publisher EventPublisher
	metrics   *telemetry.Metrics
	cache     cache.Cache[any]
	now       Clock
	logger    *clog.Logger
	events    *clog.StructuredLogger
}

func NewCampaignService(opts Options) *CampaignService {
	if opts.Campaign == nil {
		opts.Campaign = campaign.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewLRUCache[any](64, 30*time.Second)
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(clog.Config{Handler: slog.Default().Handler()})
	}
	logger := opts.Logger.WithComponent(clog.ComponentCampaign)
	return &CampaignService{
		store:     opts.Store,
		campaign:  opts.Campaign,
		catalog:   opts.Campaign.Catalog(),
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		cache:     opts.Cache,
		now:       opts.Clock,
		logger:    logger,
		events:    clog.NewStructuredLogger(logger),
	}
}

// Campaign returns the campaign settings the service computes with.
func (s *CampaignService) Campaign() *campaign.Campaign {
	return s.campaign
}

// Snapshot returns the current published snapshot.
func (s *CampaignService) Snapshot(ctx context.Context) (*documents.SnapshotDocument, error) {
	doc, ok, err := readDocument(ctx, s, documents.SnapshotKey, documents.DecodeSnapshot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return doc, nil
}

// LatestMetrics returns the last computed metrics payload.
func (s *CampaignService) LatestMetrics(ctx context.Context) (*documents.MetricsDocument, error) {
	doc, ok, err := readDocument(ctx, s, documents.MetricsKey, documents.DecodeMetrics)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMetricsNotFound
	}
	return doc, nil
}

// MonthlyIndex lists published months. An absent index is empty.
func (s *CampaignService) MonthlyIndex(ctx context.Context) (*documents.MonthlyIndexDocument, error) {
	doc, ok, err := readDocument(ctx, s, documents.MonthlyIndexKey, documents.DecodeMonthlyIndex)
	if err != nil {
		return nil, err
	}
	if !ok {
		return documents.NewMonthlyIndex(), nil
	}
	return doc, nil
}

// MonthlySnapshot returns the snapshot published for period (yyyy-mm).
func (s *CampaignService) MonthlySnapshot(ctx context.Context, period string) (*documents.MonthlySnapshotDocument, error) {
	doc, ok, err := readDocument(ctx, s, documents.MonthlyKey(period), documents.DecodeMonthlySnapshot)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMonthNotFound, period)
	}
	return doc, nil
}

// readDocument loads and decodes key through the cache. A missing blob and a
// blob of an unknown schema version both report ok=false.
func readDocument[T any](ctx context.Context, s *CampaignService, key string, decode func([]byte) (*T, error)) (*T, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		if doc, ok := v.(*T); ok {
			return doc, true, nil
		}
	}

	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	doc, err := decode(data)
	if errors.Is(err, documents.ErrUnknownSchema) {
		s.logger.WarnContext(ctx, "Ignoring document with unknown schema", clog.FieldBlobKey, key, clog.FieldError, err.Error())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	s.cache.Set(key, doc)
	return doc, true, nil
}

func (s *CampaignService) writeDocument(ctx context.Context, key string, doc any, overwrite bool) error {
	data, err := documents.Encode(doc)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, data, blob.PutOptions{Overwrite: overwrite, ContentType: blob.ContentTypeJSON}); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

func (s *CampaignService) announce(ctx context.Context, msg *amqp.SnapshotPublished) {
	s.events.LogPublished(ctx, msg.PublishID, msg.Kind, msg.Period, msg.Key, msg.IntegrityOK)
	s.metrics.RecordPublish(ctx, msg.Kind, msg.IntegrityOK)
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping event", clog.FieldPublishID, msg.PublishID)
		return
	}
	if err := s.publisher.PublishSnapshotPublished(ctx, msg); err != nil {
		// The document is stored; the export can be rebuilt on demand.
		s.logger.ErrorContext(ctx, "Failed to publish snapshot event", clog.FieldPublishID, msg.PublishID, clog.FieldError, err.Error())
	}
}
