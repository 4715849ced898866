package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// generated openapi document
	_ "github.com/theopenlane/detectify/docs"
)

// NewRouter creates a chi router with all endpoints and middleware
func NewRouter(a Analyzer, events EventSource, maxBodySize int64, requestTimeout time.Duration) http.Handler {
	h := &Handler{
		analyzer:    a,
		events:      events,
		maxBodySize: maxBodySize,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		// the event stream outlives any request timeout
		r.Get("/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))

			if requestTimeout > 0 {
				r.Use(middleware.Timeout(requestTimeout))
			}

			r.Get("/health", h.handleHealth)
			r.Post("/detect", h.handleDetect)
			r.Post("/retry", h.handleRetry)
			r.Post("/batch", h.handleBatch)
			r.Get("/runs/{id}", h.handleRun)
			r.Get("/results", h.handleGetResult)
			r.Delete("/results", h.handleDeleteResult)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusFound)
	})

	return r
}
