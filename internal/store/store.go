// Package store persists conversion records: document metadata, extracted
// rows and ownership of the cached spreadsheet.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

// Record is a document together with its rows in extraction order.
type Record struct {
	Document models.Document
	Rows     []models.Row
}

// Store is implemented by every record backend. Deleting a record also
// removes its cached artifact, and an id is never handed out twice.
type Store interface {
	// Create assigns a fresh id and persists doc and rows as one unit.
	Create(ctx context.Context, doc models.Document, rows []models.Row, status models.Status) (string, error)
	// Get fails with models.ErrNotFound when no live record exists.
	Get(ctx context.Context, id string) (*Record, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// LoadArtifact returns artifact.ErrMiss when nothing is cached yet.
	LoadArtifact(ctx context.Context, id string) ([]byte, error)
	// SaveArtifact fails with models.ErrNotFound if the record is gone,
	// leaving nothing behind.
	SaveArtifact(ctx context.Context, id string, data []byte) error
	ListCreatedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// FindByHash returns the id of a live record whose source file has the
	// given SHA-256, or "" if there is none.
	FindByHash(ctx context.Context, hash string) (string, error)
}

const maxCreateAttempts = 3

var errIDTaken = errors.New("id already used")

func newID() string {
	return uuid.NewString()
}

func notFound(id string) error {
	return models.NewError(models.KindNotFound, fmt.Sprintf("document %s not found", id), nil)
}

func storageFailure(op string, err error) error {
	return models.NewError(models.KindStorageFailure, op, err)
}

// prepare fills the fields the store owns.
func prepare(doc models.Document, id string, rows []models.Row, status models.Status, now time.Time) models.Document {
	doc.ID = id
	doc.Status = status
	doc.RowCount = len(rows)
	doc.MaxColumns = models.MaxWidth(rows)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	return doc
}

// saveChecked writes an artifact for a backend without a lock spanning the
// record and the cache. The record is checked before and after the put; if
// it vanished in between the artifact is removed again.
func saveChecked(ctx context.Context, cache artifact.Cache, id string, data []byte, exists func(context.Context) (bool, error)) error {
	ok, err := exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(id)
	}
	if err := cache.Put(ctx, id, data); err != nil {
		return storageFailure("failed to cache artifact", err)
	}
	ok, err = exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		if err := cache.Delete(ctx, id); err != nil {
			return storageFailure("failed to remove orphaned artifact", err)
		}
		return notFound(id)
	}
	return nil
}

// loadChecked reads an artifact after confirming the record exists.
func loadChecked(ctx context.Context, cache artifact.Cache, id string, exists func(context.Context) (bool, error)) ([]byte, error) {
	ok, err := exists(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(id)
	}
	data, err := cache.Get(ctx, id)
	if errors.Is(err, artifact.ErrMiss) {
		return nil, err
	}
	if err != nil {
		return nil, storageFailure("failed to read cached artifact", err)
	}
	return data, nil
}
