package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/resumedrop/apiserver/config"
)

// LocalClient stores objects as files under a directory on the local
// filesystem. It is the default backend for development. Keys are
// flattened to their base name so no key can address a path outside
// the directory.
type LocalClient struct {
	dir string
}

// NewLocalClient constructs a local filesystem backend from config.
func NewLocalClient(cfg config.LocalStorageConfig) (*LocalClient, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("upload directory is required")
	}
	return &LocalClient{dir: cfg.Dir}, nil
}

// EnsureBucket creates the upload directory if it does not exist.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	return os.MkdirAll(l.dir, 0o755)
}

// Put writes an object to the upload directory. The write goes through
// a temp file and a rename so a concurrent Get never observes a
// partially written object.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst := l.path(key)

	tmp, err := os.CreateTemp(l.dir, ".put-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Get opens a reader for an object in the upload directory.
func (l *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return os.Open(l.path(key))
}

// Delete removes an object from the upload directory.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	return os.Remove(l.path(key))
}

// Bucket returns the upload directory path.
func (l *LocalClient) Bucket() string {
	return l.dir
}

func (l *LocalClient) path(key string) string {
	return filepath.Join(l.dir, filepath.Base(key))
}
