package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/pdfxlsx/internal/api"
	"github.com/Lllllllleong/pdfxlsx/internal/config"
	"github.com/Lllllllleong/pdfxlsx/internal/services"
)

var (
	router  http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleConverterAPI", handleConverterAPI)
}

func main() {}

func setup() (http.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := services.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := services.Build(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return api.NewRouter(app.Converter, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger), nil
}

// handleConverterAPI serves the converter routes from a Cloud Function.
func handleConverterAPI(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		router, initErr = setup()
	})
	if initErr != nil {
		slog.Error("Critical: Converter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	router.ServeHTTP(w, r)
}
