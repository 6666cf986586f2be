package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var _ KV = (*FileKV)(nil)

// FileKV keeps one JSON file per key under Dir.
type FileKV struct {
	Dir      string
	MaxBytes int
}

// NewFileKV creates a file-backed store rooted at dir. maxBytes limits the size
// of a single value; zero means unlimited.
func NewFileKV(dir string, maxBytes int) *FileKV {
	return &FileKV{Dir: dir, MaxBytes: maxBytes}
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.Dir, key+".json")
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return data, true, nil
}

// Set writes the value to a temp file and renames it over the old one, so a
// crashed write never leaves a half-written snapshot behind.
func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if f.MaxBytes > 0 && len(value) > f.MaxBytes {
		return fmt.Errorf("setting %q (%d bytes): %w", key, len(value), ErrQuotaExceeded)
	}
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp, err := os.CreateTemp(f.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("failed to replace %q: %w", key, err)
	}
	return nil
}
