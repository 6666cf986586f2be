package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the snapshot layout written by SaveCollection.
const SchemaVersion = 1

var (
	// ErrCorruptSnapshot is returned when a stored value cannot be decoded.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrUnsupportedVersion is returned for snapshots written by a newer build.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// Migration upgrades the raw items of a snapshot by exactly one version.
type Migration func(items json.RawMessage) (json.RawMessage, error)

// Migrations maps a version to the migration that upgrades it to version+1.
// Versions without an entry are carried forward unchanged.
type Migrations map[int]Migration

type envelope struct {
	Version int             `json:"version"`
	Items   json.RawMessage `json:"items"`
}

// LoadCollection reads the snapshot under key, migrates it to SchemaVersion and
// decodes its items. A missing key yields an empty collection.
func LoadCollection[T any](ctx context.Context, kv KV, key string, migrations Migrations) ([]T, error) {
	data, found, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return []T{}, nil
	}

	version, items, err := decodeEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %q: %w", key, err)
	}
	if version > SchemaVersion {
		return nil, fmt.Errorf("%q has version %d, newest known is %d: %w", key, version, SchemaVersion, ErrUnsupportedVersion)
	}
	for v := version; v < SchemaVersion; v++ {
		migrate, ok := migrations[v]
		if !ok {
			continue
		}
		if items, err = migrate(items); err != nil {
			return nil, fmt.Errorf("migrating %q from version %d: %w", key, v, err)
		}
	}

	var out []T
	if err := json.Unmarshal(items, &out); err != nil {
		return nil, fmt.Errorf("decoding %q items: %w: %v", key, ErrCorruptSnapshot, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// SaveCollection writes the whole collection under key at SchemaVersion.
func SaveCollection[T any](ctx context.Context, kv KV, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding %q items: %w", key, err)
	}
	data, err := json.Marshal(envelope{Version: SchemaVersion, Items: raw})
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}

// decodeEnvelope accepts both the versioned envelope and the bare JSON array
// written before snapshots carried a version (version 0).
func decodeEnvelope(data []byte) (int, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return SchemaVersion, json.RawMessage("[]"), nil
	case data[0] == '[':
		return 0, json.RawMessage(data), nil
	case data[0] == '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
		}
		if len(env.Items) == 0 || bytes.Equal(env.Items, []byte("null")) {
			env.Items = json.RawMessage("[]")
		}
		return env.Version, env.Items, nil
	default:
		return 0, nil, ErrCorruptSnapshot
	}
}
