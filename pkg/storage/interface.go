package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Read when no object exists for a key.
var ErrNotFound = errors.New("object not found")

// Storage stores profile image assets by key.
type Storage interface {
	// Write stores content from the reader with the given key.
	// The size parameter is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Read retrieves content for the given key.
	// The caller is responsible for closing the returned ReadCloser.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if content with the given key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns a URL for accessing the content.
	// For S3 this is a presigned URL valid for expires unless a public URL is configured.
	GetURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config selects and configures a Storage backend.
type Config struct {
	Type  string      `mapstructure:"type"` // "s3", "local"
	S3    S3Config    `mapstructure:"s3"`
	Local LocalConfig `mapstructure:"local"`
}

// New creates the Storage backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "s3":
		st, err := NewS3Storage(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st, err := NewLocalStorage(cfg.Local)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
}
