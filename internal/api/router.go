// Package api exposes the converter over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
}

// NewRouter builds the HTTP handler for the converter API.
func NewRouter(svc Service, opts Options, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(svc, opts.MaxUploadBytes, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"pdf-xlsx-converter"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Root)
		r.Post("/upload", h.Upload)
		r.Get("/preview/{id}", h.Preview)
		r.Get("/download/{id}", h.Download)
		r.Delete("/file/{id}", h.Delete)
	})

	return r
}
