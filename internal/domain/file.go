package domain

import "context"

// FileStore keeps uploaded source documents.
type FileStore interface {
	// Save writes data under name and returns the path it can be read back from.
	Save(ctx context.Context, name string, data []byte) (string, error)
	ReadAll(ctx context.Context, path string) ([]byte, error)
}
