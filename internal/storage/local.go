package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs under a base directory on the local filesystem.
type Local struct {
	baseDir string
}

// NewLocal creates a filesystem store rooted at baseDir.
func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocal: creating %q: %w", baseDir, err)
	}
	return &Local{baseDir: baseDir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(key))
}

// Save implements Store.
func (l *Local) Save(ctx context.Context, key string, data []byte) error {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("Save: creating directory for %q: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("Save: writing %q: %w", key, err)
	}
	return nil
}

// Load implements Store.
func (l *Local) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(l.path(key))
	if err != nil {
		return nil, fmt.Errorf("Load: reading %q: %w", key, err)
	}
	return data, nil
}

// List implements Store.
func (l *Local) List(ctx context.Context, prefix string) ([]string, error) {
	root := l.path(prefix)
	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("List: walking %q: %w", prefix, err)
	}
	return keys, nil
}

// URI implements Store.
func (l *Local) URI(key string) string {
	return l.path(key)
}

// Filename extracts the base filename from a stored key or URI.
func Filename(uri string) string {
	uri = strings.TrimPrefix(uri, "gs://")
	return filepath.Base(filepath.FromSlash(uri))
}

var _ Store = (*Local)(nil)
