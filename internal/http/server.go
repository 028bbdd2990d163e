// Package http exposes the campaign pipeline over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"campanha/internal/cache"
	clog "campanha/internal/log"
	"campanha/internal/middleware/ratelimit"
	"campanha/internal/middleware/security"
	"campanha/internal/middleware/trace"
	"campanha/internal/services"
)

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	// MaxUploadBytes bounds uploaded files; zero means 20 MiB.
	MaxUploadBytes int64
	// Ready checks run by /readyz, keyed by name.
	Ready     map[string]ReadyCheck
	RateLimit ratelimit.Config
	Cache     cache.Cache[any]
	Logger    *clog.Logger
}

type Server struct {
	http.Server
	svc              *services.CampaignService
	logger           *clog.Logger
	maxUpload        int64
	ready            map[string]ReadyCheck
	cache            cache.Cache[any]
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.CampaignService, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	if opts.Logger == nil {
		opts.Logger = clog.New(clog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(clog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		svc:              svc,
		logger:           logger,
		maxUpload:        opts.MaxUploadBytes,
		ready:            opts.Ready,
		cache:            opts.Cache,
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		started:          time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("POST /api/metrics", s.limited(s.handleComputeMetrics))
	mux.HandleFunc("GET /api/metrics", s.handleLatestMetrics)
	mux.Handle("POST /api/admin/publish", s.limited(s.handlePublish))
	mux.Handle("POST /api/admin/monthly", s.limited(s.handlePublishMonthly))

	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/report.xlsx", s.handleReportExport)
	mux.HandleFunc("GET /api/monthly", s.handleMonthlyIndex)
	mux.HandleFunc("GET /api/monthly/{period}", s.handleMonthlySnapshot)

	var handler http.Handler = mux
	handler = clog.RequestIDMiddleware(trace.FromRequest)(handler)
	handler = clog.Middleware(opts.Logger)(handler)
	handler = detector.Middleware(opts.Logger)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// limited applies the per-IP rate limit to upload routes.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		clog.FromContext(r.Context()).WithComponent(clog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
			clog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			clog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "RATE_LIMITED", "too many uploads, try again later").Write(w)
	})(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
