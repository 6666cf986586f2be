package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pantrychef/internal/recipe"
)

// ListSaved returns every saved recipe.
func (h *Handler) ListSaved(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()
	c.JSON(http.StatusOK, h.Saved.All(ctx))
}

// SaveRecipe saves a recipe. Saving a name that is already saved returns the
// existing entry with 200 instead of 201.
func (h *Handler) SaveRecipe(c *gin.Context) {
	r, ok := bindRecipe(c)
	if !ok {
		return
	}
	ctx, cancel := storeContext(c)
	defer cancel()

	saved, created := h.Saved.Add(ctx, r)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"recipe": saved, "created": created})
}

// ToggleSaved saves or unsaves a recipe by name.
func (h *Handler) ToggleSaved(c *gin.Context) {
	r, ok := bindRecipe(c)
	if !ok {
		return
	}
	ctx, cancel := storeContext(c)
	defer cancel()

	saved, isSaved := h.Saved.Toggle(ctx, r)
	c.JSON(http.StatusOK, gin.H{"recipe": saved, "saved": isSaved})
}

// CheckSaved reports whether a recipe name is saved.
func (h *Handler) CheckSaved(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required", "field": "name"})
		return
	}
	ctx, cancel := storeContext(c)
	defer cancel()
	c.JSON(http.StatusOK, gin.H{"name": name, "saved": h.Saved.IsSaved(ctx, name)})
}

// RemoveSaved deletes a saved recipe. Playlists that reference it are left
// alone.
func (h *Handler) RemoveSaved(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()
	if !h.Saved.Remove(ctx, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "saved recipe not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPlaylists returns every playlist.
func (h *Handler) ListPlaylists(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()
	c.JSON(http.StatusOK, h.Playlists.All(ctx))
}

type createPlaylistRequest struct {
	Name string `json:"name"`
}

// CreatePlaylist creates an empty playlist.
func (h *Handler) CreatePlaylist(c *gin.Context) {
	var req createPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx, cancel := storeContext(c)
	defer cancel()

	p, err := h.Playlists.Create(ctx, req.Name)
	switch {
	case errors.Is(err, recipe.ErrBlankName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "name"})
	case errors.Is(err, recipe.ErrPlaylistExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "playlist": p})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, p)
	}
}

type playlistDetail struct {
	recipe.Playlist
	Recipes     []recipe.SavedRecipe `json:"recipes"`
	DanglingIDs []string             `json:"danglingIds"`
}

// GetPlaylist returns a playlist with its saved recipes resolved. Ids whose
// saved recipe is gone are listed separately.
func (h *Handler) GetPlaylist(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()

	p, ok := h.Playlists.Get(ctx, c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": recipe.ErrPlaylistNotFound.Error()})
		return
	}
	recipes, dangling := recipe.ResolvePlaylist(p, h.Saved.All(ctx))
	c.JSON(http.StatusOK, playlistDetail{Playlist: p, Recipes: recipes, DanglingIDs: dangling})
}

// DeletePlaylist deletes a playlist.
func (h *Handler) DeletePlaylist(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()
	if !h.Playlists.Delete(ctx, c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": recipe.ErrPlaylistNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type playlistRecipeRequest struct {
	RecipeID   string `json:"recipeId"`
	RecipeName string `json:"recipeName"`
}

// AddToPlaylist adds a saved recipe id to a playlist.
func (h *Handler) AddToPlaylist(c *gin.Context) {
	var req playlistRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RecipeID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipeId is required", "field": "recipeId"})
		return
	}
	ctx, cancel := storeContext(c)
	defer cancel()

	name := h.recipeName(c, req.RecipeID, req.RecipeName)
	p, err := h.Playlists.AddRecipe(ctx, c.Param("id"), req.RecipeID, name)
	h.writePlaylist(c, p, err)
}

// RemoveFromPlaylist takes a recipe id out of a playlist.
func (h *Handler) RemoveFromPlaylist(c *gin.Context) {
	ctx, cancel := storeContext(c)
	defer cancel()

	recipeID := c.Param("recipeId")
	name := h.recipeName(c, recipeID, "")
	p, err := h.Playlists.RemoveRecipe(ctx, c.Param("id"), recipeID, name)
	h.writePlaylist(c, p, err)
}

func (h *Handler) writePlaylist(c *gin.Context, p recipe.Playlist, err error) {
	switch {
	case errors.Is(err, recipe.ErrPlaylistNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": recipe.ErrPlaylistNotFound.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, p)
	}
}

// recipeName picks the name used in playlist notices: the one given, else
// the saved recipe's, else the id itself.
func (h *Handler) recipeName(c *gin.Context, id, given string) string {
	if given = strings.TrimSpace(given); given != "" {
		return given
	}
	ctx, cancel := storeContext(c)
	defer cancel()
	if saved, ok := h.Saved.Get(ctx, id); ok {
		return saved.RecipeName
	}
	return id
}
