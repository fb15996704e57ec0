package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
)

// RemoveLocalFile deletes path. Failures are logged, never returned.
func RemoveLocalFile(ctx context.Context, path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		slog.InfoContext(ctx, "Deleted local file", "file", path)
	case errors.Is(err, fs.ErrNotExist):
		slog.WarnContext(ctx, "Local file was not found", "file", path)
	default:
		slog.ErrorContext(ctx, "Failed to delete local file", "file", path, "error", err)
	}
}
