package recipe

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/storage"
)

var playlistMigrations = storage.Migrations{
	0: fillMissingArrays("recipeIds"),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// PlaylistStore is the playlists collection. Names are unique ignoring case.
// Recipe ids are not checked against the saved-recipes store; see
// ResolvePlaylist. Safe for concurrent use.
type PlaylistStore struct {
	mu  sync.Mutex
	col collection[Playlist]
	now func() time.Time
	log *zap.Logger
	n   notify.Notifier
}

// NewPlaylistStore creates a store persisting to kv.
func NewPlaylistStore(kv storage.KV, notifier notify.Notifier, log *zap.Logger, opts ...Option) *PlaylistStore {
	o := buildOptions(PlaylistsKey, opts)
	return &PlaylistStore{
		col: collection[Playlist]{
			kv:         kv,
			key:        o.key,
			migrations: playlistMigrations,
			notifier:   notifier,
			log:        log,
			loadFailed: notify.Destructive("Error", "Could not load your recipe playlists."),
			saveFailed: notify.Destructive("Error", "Could not save playlists. Your storage might be full."),
		},
		now: o.now,
		log: log,
		n:   notifier,
	}
}

// All returns every playlist in creation order.
func (s *PlaylistStore) All(ctx context.Context) []Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	return lo.Map(s.col.items, func(p Playlist, _ int) Playlist { return p.clone() })
}

// Get returns the playlist with the given id.
func (s *PlaylistStore) Get(ctx context.Context, id string) (Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)
	p, _, ok := s.find(id)
	if !ok {
		return Playlist{}, false
	}
	return p.clone(), true
}

// Create adds an empty playlist. Blank names fail with ErrBlankName. A name
// matching an existing playlist ignoring case fails with ErrPlaylistExists and
// returns that playlist.
func (s *PlaylistStore) Create(ctx context.Context, name string) (Playlist, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		s.n.Notify(ctx, notify.Destructive("Error", "Playlist name cannot be empty."))
		return Playlist{}, ErrBlankName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)

	if existing, ok := lo.Find(s.col.items, func(p Playlist) bool { return strings.EqualFold(p.Name, trimmed) }); ok {
		s.n.Notify(ctx, notify.Info("Playlist Exists", fmt.Sprintf("A playlist named %q already exists.", trimmed)))
		return existing.clone(), ErrPlaylistExists
	}

	p := Playlist{ID: s.newID(trimmed), Name: trimmed, RecipeIDs: []string{}}
	s.col.items = append(slices.Clone(s.col.items), p)
	s.col.persist(ctx)
	s.log.Debug("created playlist", zap.String("id", p.ID))
	s.n.Notify(ctx, notify.Info("Playlist Created!", fmt.Sprintf("Playlist %q has been created.", p.Name)))
	return p.clone(), nil
}

// Delete removes a playlist. The saved recipes it referenced are untouched.
func (s *PlaylistStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)

	p, idx, ok := s.find(id)
	if !ok {
		return false
	}
	s.col.items = slices.Delete(slices.Clone(s.col.items), idx, idx+1)
	s.col.persist(ctx)
	s.n.Notify(ctx, notify.Info("Playlist Deleted", fmt.Sprintf("%q has been deleted.", p.Name)))
	return true
}

// AddRecipe appends recipeID to a playlist. Adding an id that is already there
// changes nothing. recipeName is only used in notices.
func (s *PlaylistStore) AddRecipe(ctx context.Context, playlistID, recipeID, recipeName string) (Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)

	p, idx, ok := s.find(playlistID)
	if !ok {
		s.n.Notify(ctx, notify.Destructive("Error", "Playlist not found."))
		return Playlist{}, fmt.Errorf("%w: %s", ErrPlaylistNotFound, playlistID)
	}
	if p.Contains(recipeID) {
		s.n.Notify(ctx, notify.Info("Already Added", fmt.Sprintf("%q is already in %q.", recipeName, p.Name)))
		return p.clone(), nil
	}

	updated := p.clone()
	updated.RecipeIDs = append(updated.RecipeIDs, recipeID)
	s.replace(idx, updated)
	s.col.persist(ctx)
	s.n.Notify(ctx, notify.Info("Recipe Added", fmt.Sprintf("%q added to playlist %q.", recipeName, p.Name)))
	return updated.clone(), nil
}

// RemoveRecipe takes recipeID out of a playlist.
func (s *PlaylistStore) RemoveRecipe(ctx context.Context, playlistID, recipeID, recipeName string) (Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.col.ensure(ctx)

	p, idx, ok := s.find(playlistID)
	if !ok {
		s.n.Notify(ctx, notify.Destructive("Error", "Playlist not found."))
		return Playlist{}, fmt.Errorf("%w: %s", ErrPlaylistNotFound, playlistID)
	}
	if !p.Contains(recipeID) {
		s.n.Notify(ctx, notify.Info("Not Found", fmt.Sprintf("%q is not in this playlist.", recipeName)))
		return p.clone(), nil
	}

	updated := p.clone()
	updated.RecipeIDs = lo.Without(updated.RecipeIDs, recipeID)
	s.replace(idx, updated)
	s.col.persist(ctx)
	s.n.Notify(ctx, notify.Info("Recipe Removed", fmt.Sprintf("%q removed from %q.", recipeName, p.Name)))
	return updated.clone(), nil
}

func (s *PlaylistStore) find(id string) (Playlist, int, bool) {
	return lo.FindIndexOf(s.col.items, func(p Playlist) bool { return p.ID == id })
}

// replace swaps in a new slice so snapshots handed out earlier never change.
func (s *PlaylistStore) replace(idx int, p Playlist) {
	items := slices.Clone(s.col.items)
	items[idx] = p
	s.col.items = items
}

// newID is the name with whitespace runs turned into dashes, then the creation
// time in unix milliseconds.
func (s *PlaylistStore) newID(name string) string {
	slug := whitespaceRun.ReplaceAllString(name, "-")
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", slug, ms)
		if _, _, taken := s.find(id); !taken {
			return id
		}
		ms++
	}
}

// ResolvePlaylist maps a playlist's ids onto saved recipes, in playlist order.
// Ids with no saved recipe behind them are returned as dangling rather than
// removed from storage.
func ResolvePlaylist(p Playlist, saved []SavedRecipe) (recipes []SavedRecipe, dangling []string) {
	byID := lo.KeyBy(saved, func(r SavedRecipe) string { return r.ID })
	recipes = []SavedRecipe{}
	dangling = []string{}
	for _, id := range p.RecipeIDs {
		if r, ok := byID[id]; ok {
			recipes = append(recipes, r)
			continue
		}
		dangling = append(dangling, id)
	}
	return recipes, dangling
}
