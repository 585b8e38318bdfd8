package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdfxlsx/internal/gcp"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

// GCSEvent is the payload of a Cloud Storage object.finalized event.
type GCSEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// ObjectIngester converts PDFs as they land in a bucket.
type ObjectIngester struct {
	storageClient *storage.Client
	converter     *Converter
	maxBytes      int64
}

func NewObjectIngester(client *storage.Client, conv *Converter, maxBytes int64) *ObjectIngester {
	return &ObjectIngester{storageClient: client, converter: conv, maxBytes: maxBytes}
}

// Process converts one uploaded object. Objects that can never convert are
// logged and acknowledged; only transient failures are returned so the
// event is redelivered.
func (f *ObjectIngester) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if !strings.HasSuffix(strings.ToLower(e.Name), ".pdf") {
		logCtx.Info("Skipping non-PDF object.", "contentType", e.ContentType)
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	data, err := gcp.ReadObject(ctx, f.storageClient.Bucket(e.Bucket), e.Name, f.maxBytes)
	if err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	id, created, err := f.converter.IngestOnce(ctx, path.Base(e.Name), data)
	if err != nil {
		if isPermanent(err) {
			logCtx.Warn("Object cannot be converted. Acknowledging.", "error", err, "kind", models.KindOf(err))
			return nil
		}
		logCtx.Error("Conversion failed", "error", err)
		return fmt.Errorf("failed to convert gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	logCtx.Info("Object converted.", "documentId", id, "created", created)
	return nil
}

// isPermanent reports whether retrying the same bytes cannot succeed.
func isPermanent(err error) bool {
	switch models.KindOf(err) {
	case models.KindInvalidFileType, models.KindTooLarge, models.KindEmptyUpload,
		models.KindUnparsablePDF, models.KindEmptyDocument, models.KindExtractionTimeout:
		return true
	}
	return false
}
