package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Engine is a durable key/value cell store. Values are opaque bytes; each
// Set replaces the whole value or leaves the previous one in place.
type Engine interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

// quarantiner is implemented by engines that can move an unreadable value
// aside instead of leaving it in place.
type quarantiner interface {
	Quarantine(ctx context.Context, namespace, key string) (string, error)
}

// BaseDir returns the root data directory (~/.fieldtime).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".fieldtime"), nil
}

// FileEngine stores every cell as <dir>/<namespace>/<key>.json.
type FileEngine struct {
	dir string
}

// NewFileEngine returns an engine rooted at dir. The directory is created
// lazily on the first write.
func NewFileEngine(dir string) *FileEngine {
	return &FileEngine{dir: dir}
}

func (f *FileEngine) path(namespace, key string) string {
	return filepath.Join(f.dir, namespace, key+".json")
}

// Get returns the stored value, or ok == false if nothing was written yet.
func (f *FileEngine) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	path := f.path(namespace, key)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading %s: %w", path, err)
	}
	return data, true, nil
}

// Set atomically replaces the value.
func (f *FileEngine) Set(_ context.Context, namespace, key string, value []byte) error {
	path := f.path(namespace, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	// Atomic write: write to temp file then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, value, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

// Delete removes the value. Deleting a missing value is not an error.
func (f *FileEngine) Delete(_ context.Context, namespace, key string) error {
	path := f.path(namespace, key)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage error removing %s: %w", path, err)
	}
	return nil
}

// Quarantine renames the value file to <file>.corrupt and returns that path.
func (f *FileEngine) Quarantine(_ context.Context, namespace, key string) (string, error) {
	path := f.path(namespace, key)
	backupPath := path + ".corrupt"
	if err := os.Rename(path, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}
