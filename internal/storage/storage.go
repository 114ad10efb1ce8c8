package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Archive keeps raw model output that failed validation so operators can
// inspect what the provider actually returned.
type Archive interface {
	// Save stores data and returns the location it was written to.
	Save(ctx context.Context, userID int64, data []byte) (string, error)

	// Load reads a previously saved entry.
	Load(ctx context.Context, path string) ([]byte, error)

	// Delete removes an entry.
	Delete(ctx context.Context, path string) error
}

// LocalArchive implements Archive on the local filesystem.
type LocalArchive struct {
	dir string
}

// NewLocalArchive creates the archive directory if needed.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive directory: %w", err)
	}
	return &LocalArchive{dir: abs}, nil
}

func (a *LocalArchive) Save(ctx context.Context, userID int64, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pattern := fmt.Sprintf("user-%d-%s-*.txt", userID, time.Now().UTC().Format("20060102T150405"))
	file, err := os.CreateTemp(a.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	return file.Name(), nil
}

func (a *LocalArchive) Load(ctx context.Context, path string) ([]byte, error) {
	if err := a.checkPath(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (a *LocalArchive) Delete(ctx context.Context, path string) error {
	if err := a.checkPath(path); err != nil {
		return err
	}
	return os.Remove(path)
}

func (a *LocalArchive) checkPath(path string) error {
	clean := filepath.Clean(path)
	if !strings.HasPrefix(clean, a.dir+string(filepath.Separator)) {
		return fmt.Errorf("invalid archive path: must be within %s", a.dir)
	}
	return nil
}
