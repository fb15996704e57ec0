package service

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound means the local file to upload does not exist.
	ErrFileNotFound = errors.New("local file not found")
	// ErrCredentials means object store credentials are missing or were rejected.
	ErrCredentials = errors.New("credentials not available")
)

// ObjectStore puts local files into a single bucket.
type ObjectStore interface {
	Upload(ctx context.Context, key, filename string) error
	Bucket() string
}

// NewObjectStore builds the driver selected by cfg.Kind.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig) (ObjectStore, error) {
	switch cfg.Kind {
	case StoreS3, "":
		return NewS3Driver(ctx, cfg)
	case StoreFile:
		return NewFileDriver(cfg.BaseDir, cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported object store %q", cfg.Kind)
	}
}
