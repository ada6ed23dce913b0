// Package server exposes the assessment engine over HTTP.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/irradiance"
	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/store"
	"github.com/sells-group/solar-engine/internal/vision"
)

// Assessor is the engine surface the API uses.
type Assessor interface {
	Assess(ctx context.Context, req engine.Request) (*model.Assessment, error)
	AnalyzeRoof(ctx context.Context, img vision.Image, prompt string) (model.RoofAnalysis, error)
	Irradiance(ctx context.Context, lat, lng float64) model.IrradianceProfile
	IncentivesFor(pt model.PropertyType, sizeKW, cost float64) model.IncentiveSummary
	History() store.Store
}

// DefaultMaxUploadMB is used when the configured limit is not positive.
const DefaultMaxUploadMB = 10

// Server holds the HTTP handlers.
type Server struct {
	svc       Assessor
	validate  *validator.Validate
	maxUpload int64
	origins   []string
	breakers  func() map[string]string
	cache     func() irradiance.CacheStats
}

// Option configures a Server.
type Option func(*Server)

// WithBreakerStates reports circuit breaker states on /health.
func WithBreakerStates(fn func() map[string]string) Option {
	return func(s *Server) { s.breakers = fn }
}

// WithCacheStats reports irradiance cache counters on /health.
func WithCacheStats(fn func() irradiance.CacheStats) Option {
	return func(s *Server) { s.cache = fn }
}

// New creates a Server.
func New(svc Assessor, cfg config.ServerConfig, opts ...Option) *Server {
	mb := cfg.MaxUploadMB
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	s := &Server{
		svc:       svc,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		maxUpload: int64(mb) << 20,
		origins:   cfg.AllowedOrigins,
	}
	s.validate.RegisterTagNameFunc(tagName)
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", s.handleAssess)
		r.Get("/assessments", s.handleListAssessments)
		r.Get("/assessments/{id}", s.handleGetAssessment)
		r.Post("/roof-analysis", s.handleRoofAnalysis)
		r.Get("/irradiance", s.handleIrradiance)
		r.Get("/incentives", s.handleIncentives)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server: listening", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger logs each request and records it by route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
