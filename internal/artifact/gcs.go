package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pdfxlsx/internal/gcp"
)

// GCS keeps artifacts as objects in a Cloud Storage bucket.
type GCS struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewGCS returns a cache writing objects named <prefix><id>.xlsx.
func NewGCS(client *storage.Client, bucket, prefix string) *GCS {
	return &GCS{bucket: client.Bucket(bucket), prefix: prefix}
}

func (g *GCS) object(id string) *storage.ObjectHandle {
	return g.bucket.Object(g.prefix + objectName(id))
}

func (g *GCS) Get(ctx context.Context, id string) ([]byte, error) {
	r, err := g.object(id).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %s: %w", id, err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	return b, nil
}

// Put is create-if-absent. Artifacts for one id are identical, so an object
// that already exists is left as is.
func (g *GCS) Put(ctx context.Context, id string, data []byte) error {
	return gcp.SaveToGCSAtomically(ctx, g.bucket, g.prefix+objectName(id), data)
}

func (g *GCS) Delete(ctx context.Context, id string) error {
	err := g.object(id).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete artifact %s: %w", id, err)
	}
	return nil
}
