package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/config"
	"github.com/Lllllllleong/pdfxlsx/internal/extract"
	"github.com/Lllllllleong/pdfxlsx/internal/gcp"
	"github.com/Lllllllleong/pdfxlsx/internal/spreadsheet"
	"github.com/Lllllllleong/pdfxlsx/internal/store"
)

// NewLogger returns the JSON logger used by every binary.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// App is a fully wired converter with the resources it owns.
type App struct {
	Converter *Converter
	Config    *config.Config

	retention *Retention
	storage   *storage.Client
	closers   []io.Closer
}

// Build wires the backends selected by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{Config: cfg}

	cache, err := app.artifactCache(ctx, cfg)
	if err != nil {
		app.closeAll()
		return nil, err
	}
	st, err := app.recordStore(ctx, cfg, cache, logger)
	if err != nil {
		app.closeAll()
		return nil, err
	}

	ex := extract.New(extract.Config{
		PageWorkers:   cfg.PageWorkers,
		MaxConcurrent: cfg.MaxConcurrent,
	}, logger)

	app.Converter = NewConverter(st, ex, spreadsheet.New(), ConverterConfig{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		PreviewRows:       cfg.PreviewRows,
		ExtractionTimeout: cfg.ExtractionTimeout,
	}, logger)

	if cfg.RetentionSchedule != "" {
		app.retention, err = StartRetention(app.Converter, cfg.RetentionSchedule, cfg.RetentionMaxAge, logger)
		if err != nil {
			app.closeAll()
			return nil, err
		}
	}

	logger.Info("Converter initialized.",
		"storeBackend", cfg.StoreBackend,
		"artifactBackend", cfg.ArtifactBackend,
		"maxUploadBytes", cfg.MaxUploadBytes,
		"retention", cfg.RetentionSchedule != "",
	)
	return app, nil
}

func (a *App) artifactCache(ctx context.Context, cfg *config.Config) (artifact.Cache, error) {
	switch cfg.ArtifactBackend {
	case config.BackendGCS:
		client, err := a.StorageClient(ctx)
		if err != nil {
			return nil, err
		}
		return artifact.NewGCS(client, cfg.ArtifactBucket, cfg.ArtifactPrefix), nil
	case config.BackendLocal:
		return artifact.NewLocal(cfg.ArtifactDir)
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}

// StorageClient returns the app's Cloud Storage client, creating it on
// first use. The client is closed by Close.
func (a *App) StorageClient(ctx context.Context) (*storage.Client, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	client, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	a.useStorage(client)
	return client, nil
}

func (a *App) useStorage(client *storage.Client) {
	a.storage = client
	a.closers = append(a.closers, client)
}

func (a *App) recordStore(ctx context.Context, cfg *config.Config, cache artifact.Cache, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		return store.NewFirestoreStore(client, cfg.FirestoreCollection, cache, logger), nil
	case config.BackendBadger:
		s, err := store.OpenBadgerStore(cfg.BadgerDir, cache, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	case config.BackendMemory:
		return store.NewMemoryStore(cache), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close stops the retention schedule and releases backend clients.
func (a *App) Close(ctx context.Context) error {
	a.retention.Stop(ctx)
	return a.closeAll()
}

func (a *App) closeAll() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.storage = nil
	return errors.Join(errs...)
}
