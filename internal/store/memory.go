package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

type memoryEntry struct {
	mu      sync.Mutex
	record  Record
	deleted bool
}

// MemoryStore keeps records in process memory. Each record has its own lock
// so Delete, SaveArtifact and Get on one id are linearizable, while requests
// for different ids never contend beyond the map lookup.
type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]*memoryEntry
	retired   map[string]struct{}
	artifacts artifact.Cache
	now       func() time.Time
	newID     func() string
}

// NewMemoryStore returns an empty store caching artifacts in cache. A nil
// cache means an in-memory one.
func NewMemoryStore(cache artifact.Cache) *MemoryStore {
	if cache == nil {
		cache = artifact.NewMemory()
	}
	return &MemoryStore{
		records:   make(map[string]*memoryEntry),
		retired:   make(map[string]struct{}),
		artifacts: cache,
		now:       time.Now,
		newID:     newID,
	}
}

func (s *MemoryStore) Create(ctx context.Context, doc models.Document, rows []models.Row, status models.Status) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id := s.newID()
		if _, ok := s.records[id]; ok {
			continue
		}
		if _, ok := s.retired[id]; ok {
			continue
		}
		stored := make([]models.Row, len(rows))
		for i, r := range rows {
			stored[i] = append(models.Row(nil), r...)
		}
		s.records[id] = &memoryEntry{record: Record{
			Document: prepare(doc, id, rows, status, s.now()),
			Rows:     stored,
		}}
		return id, nil
	}
	return "", storageFailure("failed to allocate document id", errIDTaken)
}

func (s *MemoryStore) entry(id string) *memoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	e := s.entry(id)
	if e == nil {
		return nil, notFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, notFound(id)
	}
	rec := e.record
	return &rec, nil
}

// Delete removes the cached artifact before retiring the record, so a
// failed artifact delete leaves the record in place for a later retry.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	e := s.entry(id)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil
	}
	if err := s.artifacts.Delete(ctx, id); err != nil {
		return storageFailure("failed to delete cached artifact", err)
	}
	e.deleted = true

	s.mu.Lock()
	delete(s.records, id)
	s.retired[id] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadArtifact(ctx context.Context, id string) ([]byte, error) {
	e := s.entry(id)
	if e == nil {
		return nil, notFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, notFound(id)
	}
	data, err := s.artifacts.Get(ctx, id)
	if errors.Is(err, artifact.ErrMiss) {
		return nil, err
	}
	if err != nil {
		return nil, storageFailure("failed to read cached artifact", err)
	}
	return data, nil
}

func (s *MemoryStore) SaveArtifact(ctx context.Context, id string, data []byte) error {
	e := s.entry(id)
	if e == nil {
		return notFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return notFound(id)
	}
	if err := s.artifacts.Put(ctx, id, data); err != nil {
		return storageFailure("failed to cache artifact", err)
	}
	return nil
}

func (s *MemoryStore) ListCreatedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, e := range s.records {
		if e.record.Document.CreatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) FindByHash(_ context.Context, hash string) (string, error) {
	if hash == "" {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found string
	for id, e := range s.records {
		if e.record.Document.FileHash != hash {
			continue
		}
		if found == "" || e.record.Document.CreatedAt.Before(s.records[found].record.Document.CreatedAt) {
			found = id
		}
	}
	return found, nil
}
