// Package storage keeps uploaded files behind relative path keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"kb-portal/config"
)

// ErrNotFound is returned by Open for a key with no stored object.
var ErrNotFound = errors.New("storage: object not found")

// BlobStore is keyed by slash-separated relative paths. Delete of a path
// that does not exist succeeds.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// New builds the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalStore(cfg.Local.Root, cfg.Local.BaseURL)
	case "oss":
		return NewOSSStore(cfg.OSS)
	}
	return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}

// CleanKey rejects absolute paths and parent references.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return cleaned, nil
}
