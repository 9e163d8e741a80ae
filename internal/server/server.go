// Package server exposes the lab assistant pipeline as a JSON HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/lab-assistant/internal/catalog"
	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/model"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Service is the pipeline surface the API needs.
type Service interface {
	ExtractText(ctx context.Context, doc model.Document) (string, error)
	GenerateGuide(ctx context.Context, e model.Experiment) (*model.Guide, error)
	AnalyzeText(ctx context.Context, text string) (*model.Analysis, error)
	AnalyzeDocument(ctx context.Context, doc model.Document) (*pipeline.DocumentAnalysis, error)
	AskFollowup(ctx context.Context, text, question string) (string, error)
	DefineTerm(ctx context.Context, term string) (string, error)
}

// Server holds the handlers' dependencies. Apart from the rate limiter it
// keeps no state between requests.
type Server struct {
	svc      Service
	catalog  *catalog.Catalog
	cfg      config.ServerConfig
	limiter  *rate.Limiter
	maxBytes int64
}

// New creates a Server.
func New(svc Service, cat *catalog.Catalog, cfg config.ServerConfig) *Server {
	return &Server{
		svc:      svc,
		catalog:  cat,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		maxBytes: int64(cfg.MaxUploadMB) << 20,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(requestID)
	r.Use(accessLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.deadline)

		r.Get("/templates", s.handleTemplates)
		r.Post("/extract", s.handleExtract)
		r.Post("/guide", s.handleGuide)
		r.Post("/guide/artifact", s.handleGuideArtifact)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/upload", s.handleAnalyzeUpload)
		r.Post("/ask", s.handleAsk)
		r.Post("/define", s.handleDefine)
	})

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(pipeline.WithRequestID(r.Context(), id)))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", pipeline.RequestID(r.Context())),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// deadline bounds each API request by the configured request timeout, so a
// request queued behind another completion gives up before the write
// timeout cuts the connection.
func (s *Server) deadline(next http.Handler) http.Handler {
	d := s.cfg.RequestTimeout()
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:     "Too many requests. Please wait a moment and try again.",
				Class:     "transient",
				RequestID: pipeline.RequestID(r.Context()),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
