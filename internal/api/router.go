// Package api exposes the batch diagnosis engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/examdiag/internal/batch"
	"github.com/abhisek/examdiag/internal/diagnosis"
	"github.com/abhisek/examdiag/internal/logger"
	"github.com/abhisek/examdiag/internal/paper"
)

// Diagnoser runs batch and single-question diagnoses. *batch.Service
// implements it.
type Diagnoser interface {
	Diagnose(ctx context.Context, questions []paper.Question, answers []paper.Answer) (*batch.Result, error)
	DiagnoseOne(ctx context.Context, q paper.Question, a *paper.Answer) (*diagnosis.Verdict, error)
}

// Options configures NewRouter.
type Options struct {
	CORSOrigins []string

	// RequestTimeout bounds every request. Zero means 5 minutes.
	RequestTimeout time.Duration

	Logger *logger.Logger
}

// NewRouter mounts every route on a fresh chi router.
func NewRouter(svc Diagnoser, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/health", HealthHandler)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/diagnose", DiagnoseHandler(svc, log))
		r.Post("/paper/batch-diagnose", BatchDiagnoseHandler(svc, log))
		r.Post("/paper/parse", RecognizeHandler(log))
		r.Post("/questions/normalize", NormalizeHandler())
	})
	return r
}

func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
