package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/storage"
)

// Local storage keys of the two collections.
const (
	SavedRecipesKey = "savedIndianRecipes"
	PlaylistsKey    = "recipePlaylists"
)

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
	key string
}

// WithClock replaces time.Now, which feeds id generation.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(o *options) {
		o.key = key
	}
}

func buildOptions(defaultKey string, opts []Option) options {
	o := options{now: time.Now, key: defaultKey}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// collection is the load-once, write-everything discipline shared by both
// stores. Callers hold their own lock around every method.
type collection[T any] struct {
	kv         storage.KV
	key        string
	migrations storage.Migrations
	notifier   notify.Notifier
	log        *zap.Logger

	loadFailed notify.Notice
	saveFailed notify.Notice

	loaded bool
	items  []T
	// blocked is the load error that keeps persist from replacing a stored
	// snapshot this build could not read.
	blocked error
	// dirty is set once the session changes the collection.
	dirty bool
}

// ensure loads the snapshot the first time it is needed. A corrupt snapshot
// is replaced by an empty collection that later saves may overwrite. Any
// other failure leaves the stored value untouched: a newer snapshot version
// is never retried, while a backend error is retried on each access until
// the session changes the collection.
func (c *collection[T]) ensure(ctx context.Context) {
	if c.loaded && !c.retryable() {
		return
	}
	retry := c.loaded

	items, err := storage.LoadCollection[T](ctx, c.kv, c.key, c.migrations)
	if err == nil {
		if retry {
			c.log.Info("collection loaded after earlier failure", zap.String("key", c.key))
		}
		c.loaded, c.blocked, c.items = true, nil, items
		return
	}
	if retry {
		c.log.Warn("retrying collection load failed", zap.String("key", c.key), zap.Error(err))
		c.blocked = err
		return
	}

	c.loaded = true
	c.items = []T{}
	c.log.Error("failed to load collection", zap.String("key", c.key), zap.Error(err))
	c.notifier.Notify(ctx, c.loadFailed)
	if !errors.Is(err, storage.ErrCorruptSnapshot) {
		c.blocked = err
	}
}

func (c *collection[T]) retryable() bool {
	return c.blocked != nil && !c.dirty && !errors.Is(c.blocked, storage.ErrUnsupportedVersion)
}

// persist writes the full in-memory collection. Failures are reported but the
// in-memory state stays authoritative. Nothing is written while the stored
// snapshot could not be read.
func (c *collection[T]) persist(ctx context.Context) {
	c.dirty = true
	if c.blocked != nil {
		c.log.Warn("not saving collection over unreadable snapshot", zap.String("key", c.key), zap.NamedError("load_error", c.blocked))
		c.notifier.Notify(ctx, c.saveFailed)
		return
	}
	err := storage.SaveCollection(ctx, c.kv, c.key, c.items)
	if err == nil {
		return
	}
	c.log.Error("failed to save collection", zap.String("key", c.key), zap.Bool("quota", errors.Is(err, storage.ErrQuotaExceeded)), zap.Error(err))
	c.notifier.Notify(ctx, c.saveFailed)
}

// fillMissingArrays is the version 0 -> 1 migration: snapshots written before
// versioning may carry null or absent list fields.
func fillMissingArrays(fields ...string) storage.Migration {
	return func(items json.RawMessage) (json.RawMessage, error) {
		var rows []map[string]any
		if err := json.Unmarshal(items, &rows); err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row == nil {
				continue
			}
			for _, f := range fields {
				if row[f] == nil {
					row[f] = []string{}
				}
			}
		}
		return json.Marshal(rows)
	}
}
