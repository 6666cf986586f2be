// Package storage holds the key-value "local storage" the recipe stores persist
// their snapshots to. Every value is a whole-collection snapshot; there are no
// partial writes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrQuotaExceeded is returned when a write would exceed the backend's size limit.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid storage key")
)

// KV is a flat key-value store of whole snapshots.
type KV interface {
	// Get returns the value stored under key. found is false when nothing is stored.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Backend names accepted by configuration.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
