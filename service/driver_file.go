package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileDriver stores objects as plain files under base/bucket. It stands in
// for a real bucket during local dry runs.
type FileDriver struct {
	base   string
	bucket string
}

func NewFileDriver(base, bucket string) *FileDriver {
	return &FileDriver{base: base, bucket: bucket}
}

func (d *FileDriver) Bucket() string {
	return d.bucket
}

// Path returns where key is stored.
func (d *FileDriver) Path(key string) string {
	return filepath.Join(d.base, d.bucket, filepath.FromSlash(key))
}

func (d *FileDriver) Upload(ctx context.Context, key, filename string) error {
	src, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, filename)
		}
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() { _ = src.Close() }()

	dst := d.Path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", filename, dst, err)
	}
	return out.Close()
}
