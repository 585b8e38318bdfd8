package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfxlsx/internal/artifact"
	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

var sampleRows = []models.Row{
	{"Nombre", "Cantidad"},
	{"Café", "3"},
	{"Nota"},
}

func sampleDoc() models.Document {
	return models.Document{OriginalFilename: "factura.pdf", SizeBytes: 1234, PageCount: 2}
}

// failingDeletes makes the next n artifact deletes fail.
type failingDeletes struct {
	*artifact.Memory
	n int
}

func (f *failingDeletes) Delete(ctx context.Context, id string) error {
	if f.n > 0 {
		f.n--
		return errors.New("bucket unavailable")
	}
	return f.Memory.Delete(ctx, id)
}

// runStoreContract checks the behaviour every backend shares.
func runStoreContract(t *testing.T, open func(t *testing.T, cache artifact.Cache) Store) {
	ctx := context.Background()

	t.Run("CreateThenGet", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		rec, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, rec.Document.ID)
		assert.Equal(t, models.StatusReady, rec.Document.Status)
		assert.Equal(t, "factura.pdf", rec.Document.OriginalFilename)
		assert.Equal(t, 3, rec.Document.RowCount)
		assert.Equal(t, 2, rec.Document.MaxColumns)
		assert.False(t, rec.Document.CreatedAt.IsZero())
		assert.Equal(t, sampleRows, rec.Rows)
	})

	t.Run("DistinctIDs", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
			require.NoError(t, err)
			assert.False(t, seen[id], "id %s handed out twice", id)
			seen[id] = true
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		_, err := s.Get(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})

	t.Run("DeleteIsIdempotentAndCascades", func(t *testing.T) {
		cache := artifact.NewMemory()
		s := open(t, cache)
		id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)
		require.NoError(t, s.SaveArtifact(ctx, id, []byte("xlsx")))
		assert.Equal(t, 1, cache.Len())

		require.NoError(t, s.Delete(ctx, id))
		require.NoError(t, s.Delete(ctx, id))
		require.NoError(t, s.Delete(ctx, "never-existed"))

		_, err = s.Get(ctx, id)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		_, err = s.LoadArtifact(ctx, id)
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("ArtifactRoundTrip", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)

		_, err = s.LoadArtifact(ctx, id)
		assert.ErrorIs(t, err, artifact.ErrMiss)

		require.NoError(t, s.SaveArtifact(ctx, id, []byte("xlsx")))
		data, err := s.LoadArtifact(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []byte("xlsx"), data)
	})

	t.Run("SaveArtifactAfterDeleteLeavesNothing", func(t *testing.T) {
		cache := artifact.NewMemory()
		s := open(t, cache)
		id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, id))

		err = s.SaveArtifact(ctx, id, []byte("xlsx"))
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("ListCreatedBefore", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		old := sampleDoc()
		old.CreatedAt = time.Now().Add(-48 * time.Hour)
		oldID, err := s.Create(ctx, old, sampleRows, models.StatusReady)
		require.NoError(t, err)
		_, err = s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)

		ids, err := s.ListCreatedBefore(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{oldID}, ids)
	})

	t.Run("FindByHash", func(t *testing.T) {
		s := open(t, artifact.NewMemory())
		doc := sampleDoc()
		doc.FileHash = "abc123"
		id, err := s.Create(ctx, doc, sampleRows, models.StatusReady)
		require.NoError(t, err)

		found, err := s.FindByHash(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, id, found)

		found, err = s.FindByHash(ctx, "other")
		require.NoError(t, err)
		assert.Empty(t, found)

		require.NoError(t, s.Delete(ctx, id))
		found, err = s.FindByHash(ctx, "abc123")
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("FailedArtifactDeleteIsRetried", func(t *testing.T) {
		cache := &failingDeletes{Memory: artifact.NewMemory()}
		s := open(t, cache)
		id, err := s.Create(ctx, sampleDoc(), sampleRows, models.StatusReady)
		require.NoError(t, err)
		require.NoError(t, s.SaveArtifact(ctx, id, []byte("xlsx")))

		cache.n = 1
		err = s.Delete(ctx, id)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrStorageFailure))

		_, err = s.Get(ctx, id)
		require.NoError(t, err, "the record survives so the delete can be retried")
		ids, err := s.ListCreatedBefore(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Contains(t, ids, id)

		require.NoError(t, s.Delete(ctx, id))
		assert.Equal(t, 0, cache.Len())
		_, err = s.Get(ctx, id)
		assert.True(t, errors.Is(err, models.ErrNotFound))
	})
}
