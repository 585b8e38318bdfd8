package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

func openBadger(t *testing.T, cache artifact.Cache) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(t.TempDir(), cache, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T, cache artifact.Cache) Store {
		return openBadger(t, cache)
	})
}

func TestBadgerStore_DeletedIDIsNeverReissued(t *testing.T) {
	s := openBadger(t, artifact.NewMemory())
	ids := []string{"dup", "dup", "fresh"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()

	id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	id, err = s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, "fresh", id)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerStore(dir, artifact.NewMemory(), nil)
	require.NoError(t, err)
	id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir, artifact.NewMemory(), nil)
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleRows, rec.Rows)
}
