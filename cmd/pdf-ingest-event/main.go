package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pdfxlsx/internal/config"
	"github.com/Lllllllleong/pdfxlsx/internal/services"
)

var (
	ingester *services.ObjectIngester
	once     sync.Once
	initErr  error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("IngestUploadedPDF", ingestUploadedPDF)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*services.ObjectIngester, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := services.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := services.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	storageClient, err := app.StorageClient(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	return services.NewObjectIngester(storageClient, app.Converter, cfg.MaxUploadBytes), nil
}

// ingestUploadedPDF converts a PDF written to the watched bucket.
func ingestUploadedPDF(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		ingester, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID())
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return ingester.Process(ctx, gcsEvent)
}
