// Package artifact caches generated spreadsheets by document id.
package artifact

import (
	"context"
	"errors"
)

// ErrMiss is returned by Get when nothing is cached for the id.
var ErrMiss = errors.New("artifact not cached")

// Cache stores regenerable artifact bytes. Delete of a missing key is not an
// error.
type Cache interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
}

// objectName is the key an artifact is stored under.
func objectName(id string) string {
	return id + ".xlsx"
}
