package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/johnquangdev/meetcore/internal/usecase/transcript"
)

// LocalStore writes artifacts below a directory on the local filesystem
type LocalStore struct {
	root string
}

var _ transcript.ArtifactStore = (*LocalStore)(nil)

// NewLocalStore creates a new LocalStore rooted at dir
func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", abs, err)
	}
	return &LocalStore{root: abs}, nil
}

// Put writes body to root/key. The file appears atomically via rename, so a
// reader never sees a partial artifact.
func (l *LocalStore) Put(ctx context.Context, key string, body []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return path, nil
}

// Ping checks the root directory is still there
func (l *LocalStore) Ping(context.Context) error {
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("artifact directory unavailable: %w", err)
	}
	return nil
}

func (l *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(l.root, clean), nil
}
