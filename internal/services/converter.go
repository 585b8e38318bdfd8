package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/extract"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
	"github.com/Lllllllleong/pdfxlsx/internal/spreadsheet"
	"github.com/Lllllllleong/pdfxlsx/internal/store"
)

// Extractor turns PDF bytes into rows.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*extract.Result, error)
}

// Synthesizer renders rows as a spreadsheet.
type Synthesizer interface {
	Synthesize(rows []models.Row) ([]byte, error)
}

// ConverterConfig holds the limits applied to every conversion.
type ConverterConfig struct {
	MaxUploadBytes    int64
	PreviewRows       int
	ExtractionTimeout time.Duration
}

// Artifact is a spreadsheet ready to be sent to a client.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Converter owns the lifecycle of a conversion: validate, extract, store,
// preview, download and delete.
type Converter struct {
	store     store.Store
	extractor Extractor
	synth     Synthesizer
	config    ConverterConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewConverter(st store.Store, ex Extractor, sy Synthesizer, cfg ConverterConfig, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		store:     st,
		extractor: ex,
		synth:     sy,
		config:    cfg,
		logger:    logger.With("component", "converter"),
		now:       time.Now,
	}
}

// validate checks the upload before any parsing: type, then size (the
// ceiling is inclusive), then emptiness.
func (c *Converter) validate(filename string, size int64) error {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return models.NewError(models.KindInvalidFileType, fmt.Sprintf("%q is not a .pdf file", filename), nil)
	}
	if size > c.config.MaxUploadBytes {
		return models.NewError(models.KindTooLarge, fmt.Sprintf("upload of %d bytes exceeds %d", size, c.config.MaxUploadBytes), nil)
	}
	if size == 0 {
		return models.NewError(models.KindEmptyUpload, "upload is empty", nil)
	}
	return nil
}

// Ingest validates and converts one uploaded file. Nothing is stored unless
// extraction succeeds.
func (c *Converter) Ingest(ctx context.Context, filename string, data []byte) (*models.ConversionResponse, error) {
	logCtx := c.logger.With("filename", filename, "sizeBytes", len(data))

	if err := c.validate(filename, int64(len(data))); err != nil {
		logCtx.Info("Upload rejected.", "reason", models.KindOf(err))
		return nil, err
	}

	hash := fileHash(data)
	logCtx = logCtx.With("fileHash", hash)

	res, err := c.extractWithBudget(ctx, data)
	if err != nil {
		logCtx.Warn("Extraction failed.", "error", err, "kind", models.KindOf(err))
		return nil, err
	}

	doc := models.Document{
		FileHash:         hash,
		OriginalFilename: filename,
		SizeBytes:        int64(len(data)),
		PageCount:        res.PageCount,
		CreatedAt:        c.now(),
	}
	id, err := c.store.Create(ctx, doc, res.Rows, models.StatusReady)
	if err != nil {
		logCtx.Error("Failed to persist conversion.", "error", err)
		return nil, err
	}
	logCtx.Info("Conversion stored.", "documentId", id, "pageCount", res.PageCount, "rowCount", len(res.Rows))

	doc.ID = id
	doc.Status = models.StatusReady
	return buildResponse(&store.Record{Document: doc, Rows: res.Rows}, c.config.PreviewRows), nil
}

// IngestOnce is Ingest for at-least-once delivery: a file whose content was
// already converted returns the existing id with created=false.
func (c *Converter) IngestOnce(ctx context.Context, filename string, data []byte) (id string, created bool, err error) {
	if err := c.validate(filename, int64(len(data))); err != nil {
		return "", false, err
	}
	existing, err := c.store.FindByHash(ctx, fileHash(data))
	if err != nil {
		return "", false, err
	}
	if existing != "" {
		c.logger.Info("Duplicate file detected. Skipping.", "filename", filename, "existingDocId", existing)
		return existing, false, nil
	}
	resp, err := c.Ingest(ctx, filename, data)
	if err != nil {
		return "", false, err
	}
	return resp.ID, true, nil
}

func (c *Converter) extractWithBudget(ctx context.Context, data []byte) (*extract.Result, error) {
	if c.config.ExtractionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ExtractionTimeout)
		defer cancel()
	}
	res, err := c.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, models.NewError(models.KindEmptyDocument, "no rows extracted", nil)
	}
	return res, nil
}

// Preview returns the stored conversion with at most PreviewRows rows, each
// padded to the document's widest row.
func (c *Converter) Preview(ctx context.Context, id string) (*models.ConversionResponse, error) {
	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildResponse(rec, c.config.PreviewRows), nil
}

func buildResponse(rec *store.Record, limit int) *models.ConversionResponse {
	rows := rec.Rows
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return &models.ConversionResponse{
		ID:               rec.Document.ID,
		OriginalFilename: rec.Document.OriginalFilename,
		Status:           rec.Document.Status,
		PreviewData:      models.PadRows(rows, models.MaxWidth(rec.Rows)),
		TotalRows:        len(rec.Rows),
		TotalPages:       rec.Document.PageCount,
	}
}

// Download returns the spreadsheet for a ready document, generating and
// caching it on first use.
func (c *Converter) Download(ctx context.Context, id string) (*Artifact, error) {
	logCtx := c.logger.With("documentId", id)

	rec, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Document.Status != models.StatusReady {
		return nil, models.NewError(models.KindNotFound, fmt.Sprintf("document %s is %s", id, rec.Document.Status), nil)
	}

	data, err := c.store.LoadArtifact(ctx, id)
	switch {
	case err == nil:
		logCtx.Debug("Serving cached artifact.")
	case errors.Is(err, models.ErrNotFound):
		return nil, err
	default:
		if !errors.Is(err, artifact.ErrMiss) {
			logCtx.Warn("Cached artifact unreadable, regenerating.", "error", err)
		}
		data, err = c.synth.Synthesize(rec.Rows)
		if err != nil {
			logCtx.Error("Failed to synthesize spreadsheet.", "error", err)
			return nil, models.NewError(models.KindSynthesisFailure, "failed to build spreadsheet", err)
		}
		if err := c.store.SaveArtifact(ctx, id, data); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
			logCtx.Warn("Failed to cache artifact, serving uncached.", "error", err)
		}
	}

	return &Artifact{
		Filename:    DownloadName(rec.Document.OriginalFilename),
		ContentType: spreadsheet.ContentType,
		Data:        data,
	}, nil
}

// Remove deletes a document, its rows and its cached artifact. Unknown ids
// are not an error.
func (c *Converter) Remove(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		c.logger.Error("Failed to delete document.", "documentId", id, "error", err)
		return err
	}
	c.logger.Info("Document deleted.", "documentId", id)
	return nil
}

// Sweep deletes every document created more than maxAge ago and returns how
// many were removed. It keeps going past individual failures.
func (c *Converter) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := c.store.ListCreatedBefore(ctx, c.now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired documents: %w", err)
	}
	removed := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
			continue
		}
		removed++
	}
	c.logger.Info("Retention sweep finished.", "expired", len(ids), "removed", removed)
	return removed, errors.Join(errs...)
}

// DownloadName maps "report.v2.PDF" to "report.v2.xlsx". Any client-side
// directory part is dropped.
func DownloadName(original string) string {
	name := path.Base(strings.ReplaceAll(original, `\`, "/"))
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "." || name == "/" {
		name = "converted"
	}
	return name + ".xlsx"
}

func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
