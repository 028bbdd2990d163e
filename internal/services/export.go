package services

import (
	"context"
	"fmt"

	"campanha/internal/amqp"
	"campanha/internal/blob"
	"campanha/internal/documents"
	"campanha/internal/export"
)

// ReportExport returns the XLSX of the current snapshot, rendering and
// storing it when the worker has not produced it yet.
func (s *CampaignService) ReportExport(ctx context.Context) ([]byte, string, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	key := documents.ExportKey(doc.PublishID)
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	if ok {
		return data, doc.PublishID, nil
	}
	data, err = s.renderSnapshot(doc)
	if err != nil {
		return nil, "", err
	}
	if err := s.store.Put(ctx, key, data, blob.PutOptions{Overwrite: true, ContentType: blob.ContentTypeXLSX}); err != nil {
		s.logger.WarnContext(ctx, "Failed to store rendered export", "key", key, "error", err.Error())
	}
	return data, doc.PublishID, nil
}

// RenderExport renders the document announced by msg into its export key.
// An event for a snapshot that has since been replaced renders nothing.
func (s *CampaignService) RenderExport(ctx context.Context, msg *amqp.SnapshotPublished) (key string, err error) {
	defer func() { s.metrics.RecordExport(ctx, err == nil) }()

	raw, ok, err := s.store.Get(ctx, msg.Key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", msg.Key, err)
	}
	if !ok {
		return "", fmt.Errorf("document %s not found", msg.Key)
	}

	var data []byte
	switch msg.Kind {
	case amqp.KindSnapshot:
		doc, err := documents.DecodeSnapshot(raw)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", msg.Key, err)
		}
		if doc.PublishID != msg.PublishID {
			s.logger.InfoContext(ctx, "Skipping export of replaced snapshot", "publish_id", msg.PublishID, "current", doc.PublishID)
			return "", nil
		}
		data, err = s.renderSnapshot(doc)
		if err != nil {
			return "", err
		}
	case amqp.KindMonthly:
		doc, err := documents.DecodeMonthlySnapshot(raw)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", msg.Key, err)
		}
		if doc.PublishID != msg.PublishID {
			s.logger.InfoContext(ctx, "Skipping export of replaced month", "publish_id", msg.PublishID, "current", doc.PublishID)
			return "", nil
		}
		data, err = export.Render(export.Input{
			Title:       s.campaign.Name + " " + doc.Period,
			PublishID:   doc.PublishID,
			PublishedAt: doc.PublishedAt,
			Snapshot:    doc.Snapshot,
			Truthline:   doc.Truthline,
		})
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown document kind %q", msg.Kind)
	}

	key = documents.ExportKey(msg.PublishID)
	if err := s.store.Put(ctx, key, data, blob.PutOptions{Overwrite: true, ContentType: blob.ContentTypeXLSX}); err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	return key, nil
}

func (s *CampaignService) renderSnapshot(doc *documents.SnapshotDocument) ([]byte, error) {
	return export.Render(export.Input{
		Title:       s.campaign.Name,
		PublishID:   doc.PublishID,
		PublishedAt: doc.PublishedAt,
		Snapshot:    doc.Snapshot,
		Truthline:   doc.Truthline,
	})
}
