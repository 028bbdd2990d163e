// Package worker renders XLSX exports for published campaign documents.
package worker

import (
	"context"
	"errors"
	"fmt"

	"campanha/internal/amqp"
	clog "campanha/internal/log"
	"campanha/internal/services"
)

// Renderer turns an announced document into its stored export.
type Renderer interface {
	RenderExport(ctx context.Context, msg *amqp.SnapshotPublished) (string, error)
	ReportExport(ctx context.Context) ([]byte, string, error)
}

// ExportWorker handles snapshot.published messages from AMQP.
type ExportWorker struct {
	renderer Renderer
	logger   *clog.Logger
}

func NewExportWorker(renderer Renderer, logger *clog.Logger) *ExportWorker {
	if logger == nil {
		logger = clog.New(clog.DefaultConfig())
	}
	return &ExportWorker{
		renderer: renderer,
		logger:   logger.WithComponent(clog.ComponentWorker),
	}
}

// HandleSnapshotPublished renders the export of one announced document.
// Returning an error nacks the message.
func (w *ExportWorker) HandleSnapshotPublished(ctx context.Context, msg *amqp.SnapshotPublished) error {
	w.logger.InfoContext(ctx, "Processing snapshot event",
		clog.FieldPublishID, msg.PublishID,
		clog.FieldKind, msg.Kind,
		clog.FieldPeriod, msg.Period)

	key, err := w.renderer.RenderExport(ctx, msg)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to render export",
			clog.FieldPublishID, msg.PublishID,
			clog.FieldBlobKey, msg.Key,
			clog.FieldError, err.Error())
		return fmt.Errorf("render export %s: %w", msg.PublishID, err)
	}
	if key == "" {
		return nil
	}

	w.logger.InfoContext(ctx, "Export stored",
		clog.FieldPublishID, msg.PublishID,
		clog.FieldBlobKey, key)
	return nil
}

// StartupExportCheck renders the export of the current snapshot when it is
// missing, covering events published while the worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	data, publishID, err := w.renderer.ReportExport(ctx)
	if errors.Is(err, services.ErrSnapshotNotFound) {
		w.logger.InfoContext(ctx, "No snapshot published yet, nothing to export")
		return nil
	}
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}

	w.logger.InfoContext(ctx, "Startup export check completed",
		clog.FieldPublishID, publishID,
		"bytes", len(data))
	return nil
}
