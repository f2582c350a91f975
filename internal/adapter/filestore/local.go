package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"quiz-ingest/internal/domain"
)

// LocalStore keeps uploaded documents in a directory on the local disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes data to <dir>/<name>. name must be a bare file name.
func (s *LocalStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", domain.NewInvalidInputError(fmt.Sprintf("invalid file name %q", name))
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload %s: %w", path, err)
	}
	return path, nil
}

// ReadAll returns the content at path. A missing file yields an error wrapping os.ErrNotExist.
func (s *LocalStore) ReadAll(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

var _ domain.FileStore = (*LocalStore)(nil)
