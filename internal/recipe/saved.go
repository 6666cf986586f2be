package recipe

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/storage"
)

var savedMigrations = storage.Migrations{
	0: fillMissingArrays("ingredients", "instructions"),
}

// SavedStore is the saved-recipes collection. At most one entry exists per
// recipe name (exact, case-sensitive). Safe for concurrent use.
type SavedStore struct {
	mu  sync.Mutex
	col collection[SavedRecipe]
	now func() time.Time
	log *zap.Logger
	n   notify.Notifier
}

// NewSavedStore creates a store persisting to kv. Nothing is read until the
// first call.
func NewSavedStore(kv storage.KV, notifier notify.Notifier, log *zap.Logger, opts ...Option) *SavedStore {
	o := buildOptions(SavedRecipesKey, opts)
	return &SavedStore{
		col: collection[SavedRecipe]{
			kv:         kv,
			key:        o.key,
			migrations: savedMigrations,
			notifier:   notifier,
			log:        log,
			loadFailed: notify.Destructive("Error", "Could not load saved recipes."),
			saveFailed: notify.Destructive("Error", "Could not save recipes. Your storage might be full."),
		},
		now: o.now,
		log: log,
		n:   notifier,
	}
}

// All returns the saved recipes in the order they were saved.
func (s *SavedStore) All(ctx context.Context) []SavedRecipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return slices.Clone(s.col.items)
}

// Get looks a saved recipe up by id.
func (s *SavedStore) Get(ctx context.Context, id string) (SavedRecipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return lo.Find(s.col.items, func(r SavedRecipe) bool { return r.ID == id })
}

// FindByName looks a saved recipe up by its exact name.
func (s *SavedStore) FindByName(ctx context.Context, name string) (SavedRecipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return s.findByName(name)
}

// IsSaved reports whether a recipe with this exact name is saved.
func (s *SavedStore) IsSaved(ctx context.Context, name string) bool {
	_, ok := s.FindByName(ctx, name)
	return ok
}

// Add saves r. If a recipe with the same name is already saved it is returned
// unchanged and created is false; that is not an error.
func (s *SavedStore) Add(ctx context.Context, r Recipe) (saved SavedRecipe, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return s.add(ctx, r)
}

// Remove deletes the saved recipe with the given id. Unknown ids are ignored.
func (s *SavedStore) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return s.remove(ctx, id)
}

// Toggle unsaves r if a recipe with its name is saved and saves it otherwise.
// It reports whether r is saved afterwards.
func (s *SavedStore) Toggle(ctx context.Context, r Recipe) (SavedRecipe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)

	if existing, ok := s.findByName(r.RecipeName); ok {
		s.remove(ctx, existing.ID)
		return existing, false
	}
	saved, _ := s.add(ctx, r)
	return saved, true
}

func (s *SavedStore) findByName(name string) (SavedRecipe, bool) {
	return lo.Find(s.col.items, func(r SavedRecipe) bool { return r.RecipeName == name })
}

func (s *SavedStore) add(ctx context.Context, r Recipe) (SavedRecipe, bool) {
	if existing, ok := s.findByName(r.RecipeName); ok {
		s.n.Notify(ctx, notify.Info("Already Saved", fmt.Sprintf("%q is already in your saved list.", r.RecipeName)))
		return existing, false
	}

	saved := SavedRecipe{ID: s.newID(r.RecipeName), Recipe: r.withLists()}
	s.col.items = append(s.col.items, saved)
	s.col.persist(ctx)
	s.log.Debug("saved recipe", zap.String("id", saved.ID))
	s.n.Notify(ctx, notify.Info("Recipe Saved!", fmt.Sprintf("%q has been added to your list.", r.RecipeName)))
	return saved, true
}

func (s *SavedStore) remove(ctx context.Context, id string) bool {
	existing, idx, ok := lo.FindIndexOf(s.col.items, func(r SavedRecipe) bool { return r.ID == id })
	if !ok {
		return false
	}
	s.col.items = slices.Delete(slices.Clone(s.col.items), idx, idx+1)
	s.col.persist(ctx)
	s.n.Notify(ctx, notify.Info("Recipe Removed", fmt.Sprintf("%q has been removed from your list.", existing.RecipeName)))
	return true
}

// newID is the recipe name followed by the save time in unix milliseconds,
// bumped forward in the unlikely case it is already taken.
func (s *SavedStore) newID(name string) string {
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s%d", name, ms)
		if !lo.ContainsBy(s.col.items, func(r SavedRecipe) bool { return r.ID == id }) {
			return id
		}
		ms++
	}
}
