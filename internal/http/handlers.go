package http

import (
	"context"
	"net/http"
	"time"

	"campanha/internal/core"
	"campanha/internal/documents"
	clog "campanha/internal/log"
	"campanha/internal/metrics"
	"campanha/internal/monthly"
	"campanha/internal/normalize"
	"campanha/internal/services"
	"campanha/internal/snapshot"
	"campanha/internal/truthline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady runs the dependency checks.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(s.ready)+2)

	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	if s.cache != nil {
		checks["cache"] = map[string]any{"entries": s.cache.Size(), "status": "ok"}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger := clog.FromContext(r.Context()).WithComponent(clog.ComponentHTTP)
	fields := clog.NewFields().WithError(err).WithOperation(op)
	if _, dataset := core.AsDatasetError(err); dataset {
		logger.WarnContext(r.Context(), "Upload rejected", fields.ToSlice()...)
	} else {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	}
	ErrorFromErr(err).Write(w)
}

func (s *Server) handleComputeMetrics(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, s.maxUpload)
	if err != nil {
		s.fail(w, r, clog.OpParse, err)
		return
	}
	payload, err := s.svc.ComputeMetrics(r.Context(), up)
	if err != nil {
		s.fail(w, r, clog.OpMetrics, err)
		return
	}
	NewJSONResponse().Body(payload).Write(w)
}

func (s *Server) handleLatestMetrics(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.LatestMetrics(r.Context())
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Body(doc).Write(w)
}

// publishResponse omits the proposal facts; GET /api/snapshot serves them.
type publishResponse struct {
	PublishID   string             `json:"publishId"`
	Key         string             `json:"key"`
	PublishedAt time.Time          `json:"publishedAt"`
	Source      documents.Source   `json:"source"`
	Summary     snapshot.Summary   `json:"summary"`
	Truthline   truthline.Report   `json:"truthline"`
	Metrics     *metrics.Payload   `json:"metrics,omitempty"`
	Rows        normalize.RowStats `json:"rows"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	up, err := ReadUpload(w, r, s.maxUpload)
	if err != nil {
		s.fail(w, r, clog.OpParse, err)
		return
	}
	res, err := s.svc.Publish(r.Context(), up)
	if err != nil {
		s.fail(w, r, clog.OpPublish, err)
		return
	}

	body := publishResponse{
		PublishID:   res.PublishID,
		Key:         res.Key,
		PublishedAt: res.Document.PublishedAt,
		Source:      res.Document.Source,
		Summary:     res.Document.Snapshot.Summary,
		Truthline:   res.Document.Truthline,
		Metrics:     res.Metrics,
		Rows:        res.Rows,
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/snapshot").
		Body(body).
		Write(w)
}

type monthlyResponse struct {
	PublishID   string           `json:"publishId"`
	Key         string           `json:"key"`
	Period      string           `json:"period"`
	PublishedAt time.Time        `json:"publishedAt"`
	Audit       monthly.Audit    `json:"audit"`
	Summary     snapshot.Summary `json:"summary"`
	Truthline   truthline.Report `json:"truthline"`
}

func (s *Server) handlePublishMonthly(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthlyParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, clog.OpValidate, err)
		return
	}
	up, err := ReadUpload(w, r, s.maxUpload)
	if err != nil {
		s.fail(w, r, clog.OpParse, err)
		return
	}

	res, err := s.svc.PublishMonthly(r.Context(), services.MonthlyRequest{
		Upload:    up,
		Year:      params.Year,
		Month:     params.Month,
		Overwrite: params.Overwrite,
	})
	if err != nil {
		s.fail(w, r, clog.OpMonthly, err)
		return
	}

	doc := res.Document
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/monthly/"+doc.Period).
		Body(monthlyResponse{
			PublishID:   res.PublishID,
			Key:         res.Key,
			Period:      doc.Period,
			PublishedAt: doc.PublishedAt,
			Audit:       doc.Audit,
			Summary:     doc.Snapshot.Summary,
			Truthline:   doc.Truthline,
		}).
		Write(w)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Body(doc).Write(w)
}

// reportResponse is the dashboard view of the current snapshot.
type reportResponse struct {
	Campaign    string                  `json:"campaign"`
	PublishID   string                  `json:"publishId"`
	PublishedAt time.Time               `json:"publishedAt"`
	LastDay     core.Date               `json:"lastDay"`
	Summary     snapshot.Summary        `json:"summary"`
	Stores      []snapshot.StoreMetrics `json:"stores"`
	Truthline   truthline.Report        `json:"truthline"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.Snapshot(r.Context())
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Body(reportResponse{
		Campaign:    s.svc.Campaign().Name,
		PublishID:   doc.PublishID,
		PublishedAt: doc.PublishedAt,
		LastDay:     doc.Snapshot.LastDay,
		Summary:     doc.Snapshot.Summary,
		Stores:      doc.Snapshot.Stores,
		Truthline:   doc.Truthline,
	}).Write(w)
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	data, publishID, err := s.svc.ReportExport(r.Context())
	if err != nil {
		s.fail(w, r, clog.OpExport, err)
		return
	}
	NewJSONResponse().
		Header("Content-Type", xlsxContentType).
		Header("Content-Disposition", `attachment; filename="campanha-`+publishID+`.xlsx"`).
		Raw(data).
		Write(w)
}

func (s *Server) handleMonthlyIndex(w http.ResponseWriter, r *http.Request) {
	idx, err := s.svc.MonthlyIndex(r.Context())
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Body(idx).Write(w)
}

func (s *Server) handleMonthlySnapshot(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")
	if _, err := time.Parse("2006-01", period); err != nil {
		BadRequestError(string(core.CodeInvalidPeriod), "period must be formatted as yyyy-mm").Write(w)
		return
	}
	doc, err := s.svc.MonthlySnapshot(r.Context(), period)
	if err != nil {
		s.fail(w, r, clog.OpRead, err)
		return
	}
	NewJSONResponse().Body(doc).Write(w)
}
