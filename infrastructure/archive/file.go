package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBucket stores objects as files below a base directory.
type FileBucket struct {
	basePath string
}

// NewFileBucket creates the base directory if needed.
func NewFileBucket(basePath string) (*FileBucket, error) {
	if err := os.MkdirAll(basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &FileBucket{basePath: basePath}, nil
}

// Put writes data atomically to the file for key.
func (b *FileBucket) Put(ctx context.Context, key string, data []byte, _ Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           // #nosec G104 -- best-effort cleanup in error path
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to close object: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name()) // #nosec G104 -- best-effort cleanup in error path
		return fmt.Errorf("failed to commit object: %w", err)
	}
	return nil
}

// path maps key below basePath, rejecting keys that escape it.
func (b *FileBucket) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid key %q", ErrInvalidURL, key)
	}
	return filepath.Join(b.basePath, clean), nil
}

// Close is a no-op.
func (b *FileBucket) Close() error { return nil }
