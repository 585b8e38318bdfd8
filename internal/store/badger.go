package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

type badgerRecord struct {
	ID        string
	FileHash  string
	CreatedAt time.Time
	Document  models.Document
	Rows      []models.Row
}

// badgerRetired marks an id whose record was deleted so it is never reused.
type badgerRetired struct {
	ID        string
	DeletedAt time.Time
}

// BadgerStore persists records in an embedded Badger database on local disk.
type BadgerStore struct {
	db        *badgerhold.Store
	artifacts artifact.Cache
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// OpenBadgerStore opens (or creates) the database in dir.
func OpenBadgerStore(dir string, cache artifact.Cache, logger *slog.Logger) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Info("Badger store opened.", "path", dir)

	return &BadgerStore{
		db:        db,
		artifacts: cache,
		logger:    logger,
		now:       time.Now,
		newID:     newID,
	}, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) Create(ctx context.Context, doc models.Document, rows []models.Row, status models.Status) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id := s.newID()
		d := prepare(doc, id, rows, status, s.now())
		rec := &badgerRecord{ID: id, FileHash: d.FileHash, CreatedAt: d.CreatedAt, Document: d, Rows: rows}

		err := s.db.Badger().Update(func(tx *badger.Txn) error {
			var retired badgerRetired
			err := s.db.TxGet(tx, id, &retired)
			if err == nil {
				return errIDTaken
			}
			if !errors.Is(err, badgerhold.ErrNotFound) {
				return err
			}
			return s.db.TxInsert(tx, id, rec)
		})
		if errors.Is(err, errIDTaken) || errors.Is(err, badgerhold.ErrKeyExists) {
			s.logger.Warn("Generated id already used, retrying.", "documentId", id)
			continue
		}
		if err != nil {
			return "", storageFailure("failed to create record", err)
		}
		return id, nil
	}
	return "", storageFailure("failed to allocate document id", errIDTaken)
}

func (s *BadgerStore) Get(_ context.Context, id string) (*Record, error) {
	var rec badgerRecord
	err := s.db.Get(id, &rec)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageFailure("failed to read record", err)
	}
	return &Record{Document: rec.Document, Rows: rec.Rows}, nil
}

func (s *BadgerStore) exists(id string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		_, err := s.Get(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

// Delete clears the cached artifact both before and after removing the
// record. The first pass keeps the record retryable when the cache fails;
// the second catches a concurrent SaveArtifact.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return storageFailure("failed to delete cached artifact", err)
	}
	err := s.db.Badger().Update(func(tx *badger.Txn) error {
		err := s.db.TxDelete(tx, id, &badgerRecord{})
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return s.db.TxUpsert(tx, id, &badgerRetired{ID: id, DeletedAt: s.now()})
	})
	if err != nil {
		return storageFailure("failed to delete record", err)
	}
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return storageFailure("failed to delete cached artifact", err)
	}
	return nil
}

func (s *BadgerStore) LoadArtifact(ctx context.Context, id string) ([]byte, error) {
	return loadChecked(ctx, s.artifacts, id, s.exists(id))
}

func (s *BadgerStore) SaveArtifact(ctx context.Context, id string, data []byte) error {
	return saveChecked(ctx, s.artifacts, id, data, s.exists(id))
}

func (s *BadgerStore) ListCreatedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	var recs []badgerRecord
	if err := s.db.Find(&recs, badgerhold.Where("CreatedAt").Lt(cutoff).SortBy("ID")); err != nil {
		return nil, storageFailure("failed to list records", err)
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *BadgerStore) FindByHash(_ context.Context, hash string) (string, error) {
	if hash == "" {
		return "", nil
	}
	var recs []badgerRecord
	if err := s.db.Find(&recs, badgerhold.Where("FileHash").Eq(hash).SortBy("CreatedAt").Limit(1)); err != nil {
		return "", storageFailure("failed to query by hash", err)
	}
	if len(recs) == 0 {
		return "", nil
	}
	return recs[0].ID, nil
}
