package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local keeps artifacts as files in one directory.
type Local struct {
	dir string
}

// NewLocal creates dir if needed and returns a cache rooted there.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || id == "." || id == ".." {
		return "", fmt.Errorf("invalid artifact id %q", id)
	}
	return filepath.Join(l.dir, objectName(id)), nil
}

func (l *Local) Get(_ context.Context, id string) ([]byte, error) {
	p, err := l.path(id)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", id, err)
	}
	return b, nil
}

// Put writes to a temp file in the same directory and renames it into place,
// so readers never observe a partial file.
func (l *Local) Put(_ context.Context, id string, data []byte) error {
	p, err := l.path(id)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(l.dir, objectName(id)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize artifact %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("failed to move artifact %s into place: %w", id, err)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, id string) error {
	p, err := l.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete artifact %s: %w", id, err)
	}
	return nil
}
