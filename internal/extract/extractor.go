// Package extract turns PDF bytes into ordered rows of cell text.
//
// Documents are opened and validated with pdfcpu, which also supplies the
// page count. Page content is read with ledongthuc/pdf, a pure Go reader
// without CGO: glyphs through its text decoder, ruling lines through a
// second pass over the content stream with pdf.Interpret.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

func init() {
	// pdfcpu must not create a config directory under $HOME.
	api.DisableConfigDir()
}

// Result is the output of a successful extraction.
type Result struct {
	Rows      []models.Row
	PageCount int
}

// Config bounds the work done by an Extractor.
type Config struct {
	// PageWorkers is the number of pages of one document read in parallel.
	PageWorkers int
	// MaxConcurrent is the number of documents extracted at once.
	MaxConcurrent int64
}

// Extractor parses PDFs. It is safe for concurrent use.
type Extractor struct {
	config Config
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New creates an Extractor.
func New(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 1
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		config: cfg,
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger.With("component", "extractor"),
	}
}

type outcome struct {
	res *Result
	err error
}

// Extract parses data into rows. The work runs on its own goroutine; when
// ctx expires first the caller gets an ExtractionTimeout error at once and
// the worker's slot is released only when it actually finishes.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, contextError(err)
	}
	done := make(chan outcome, 1)
	go func() {
		defer e.sem.Release(1)
		res, err := e.extract(ctx, data)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindExtractionTimeout, "extraction exceeded its time budget", err)
	}
	return fmt.Errorf("extraction cancelled: %w", err)
}

func (e *Extractor) extract(ctx context.Context, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, models.NewError(models.KindUnparsablePDF, "no data", nil)
	}

	pageCount, err := countPages(data)
	if err != nil {
		return nil, models.NewError(models.KindUnparsablePDF, "failed to validate PDF", err)
	}
	if _, err := openReader(data); err != nil {
		return nil, models.NewError(models.KindUnparsablePDF, "failed to open PDF", err)
	}

	perPage := make([][]models.Row, pageCount)
	workers := min(e.config.PageWorkers, pageCount)

	eg, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		worker := w
		eg.Go(func() error {
			r, err := openReader(data)
			if err != nil {
				return err
			}
			n := r.NumPage()
			for i := worker; i < pageCount && i < n; i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows, err := readPage(r, i+1)
				if err != nil {
					e.logger.Warn("Skipping unreadable page.", "page", i+1, "error", err)
					continue
				}
				perPage[i] = rows
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, contextError(ctxErr)
		}
		return nil, models.NewError(models.KindUnparsablePDF, "failed to read pages", err)
	}

	var rows []models.Row
	for _, pr := range perPage {
		rows = append(rows, pr...)
	}
	if len(rows) == 0 {
		return nil, models.NewError(models.KindEmptyDocument, "no rows extracted from any page", nil)
	}
	e.logger.Debug("Extraction complete.", "pageCount", pageCount, "rowCount", len(rows))
	return &Result{Rows: rows, PageCount: pageCount}, nil
}

// countPages validates the document in relaxed mode and returns its page count.
func countPages(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// openReader wraps pdf.NewReader, which panics on some malformed input.
func openReader(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader: %v", p)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// readPage extracts one page (1-based). Content stream decoding panics are
// turned into errors.
func readPage(r *pdf.Reader, n int) (rows []models.Row, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("page %d content: %v", n, p)
		}
	}()
	page := r.Page(n)
	if page.V.IsNull() {
		return nil, nil
	}
	content := page.Content()

	gs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		gs = append(gs, glyph{x: t.X, y: t.Y, w: t.W, size: math.Abs(t.FontSize), s: t.S})
	}
	return pageRows(gs, pageRules(page)), nil
}
