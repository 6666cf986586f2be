package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantrychef/internal/cooking"
	"pantrychef/internal/notify"
	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
	"pantrychef/internal/suggest"
)

// storeTimeout bounds a single storage read or write.
const storeTimeout = 5 * time.Second

// Suggester defines the suggestion panel operations.
type Suggester interface {
	Submit(ctx context.Context, raw string, prefs recipe.Preferences) (suggest.State, error)
	Current() suggest.State
	View(r recipe.Recipe) suggest.State
	Clear() suggest.State
	Detect(ctx context.Context, dataURI string) (recipe.Detection, error)
}

// SavedRecipes defines the saved-recipes operations.
type SavedRecipes interface {
	All(ctx context.Context) []recipe.SavedRecipe
	Get(ctx context.Context, id string) (recipe.SavedRecipe, bool)
	IsSaved(ctx context.Context, name string) bool
	Add(ctx context.Context, r recipe.Recipe) (recipe.SavedRecipe, bool)
	Remove(ctx context.Context, id string) bool
	Toggle(ctx context.Context, r recipe.Recipe) (recipe.SavedRecipe, bool)
}

// Playlists defines the playlist operations.
type Playlists interface {
	All(ctx context.Context) []recipe.Playlist
	Get(ctx context.Context, id string) (recipe.Playlist, bool)
	Create(ctx context.Context, name string) (recipe.Playlist, error)
	Delete(ctx context.Context, id string) bool
	AddRecipe(ctx context.Context, playlistID, recipeID, recipeName string) (recipe.Playlist, error)
	RemoveRecipe(ctx context.Context, playlistID, recipeID, recipeName string) (recipe.Playlist, error)
}

// CookingSessions defines the cooking mode operations.
type CookingSessions interface {
	Open(r recipe.Recipe) (*cooking.Session, error)
	Get(id string) (*cooking.Session, error)
	Close(id string) error
}

// Notices is drained by the UI to show toasts.
type Notices interface {
	Drain() []notify.Notice
}

// Handler handles HTTP requests.
type Handler struct {
	Suggester Suggester
	Saved     SavedRecipes
	Playlists Playlists
	Cooking   CookingSessions
	Notices   Notices
	Log       *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(suggester Suggester, saved SavedRecipes, playlists Playlists, sessions CookingSessions, notices Notices, log *zap.Logger) *Handler {
	return &Handler{
		Suggester: suggester,
		Saved:     saved,
		Playlists: playlists,
		Cooking:   sessions,
		Notices:   notices,
		Log:       log,
	}
}

type suggestRequest struct {
	Ingredients    string `json:"ingredients"`
	SpiceLevel     string `json:"spiceLevel"`
	RegionalFlavor string `json:"regionalFlavor"`
}

// SuggestRecipe handles the ingredient form submission.
func (h *Handler) SuggestRecipe(c *gin.Context) {
	var req suggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %s", err.Error())})
		return
	}

	st, err := h.Suggester.Submit(c.Request.Context(), req.Ingredients, recipe.Preferences{
		SpiceLevel:     req.SpiceLevel,
		RegionalFlavor: req.RegionalFlavor,
	})
	if err != nil {
		var verr *suggest.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
		case errors.Is(err, suggest.ErrSuperseded):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "generation": st.Generation})
		case errors.Is(err, suggest.ErrProviderBusy):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Maa is busy right now. Please try again later.", "generation": st.Generation})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, st)
}

// RecipeOptions lists the preference choices for the form.
func (h *Handler) RecipeOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"spiceLevels":     recipe.SpiceLevels,
		"regionalFlavors": recipe.RegionalFlavors,
	})
}

// CurrentRecipe returns the recipe on display, if any.
func (h *Handler) CurrentRecipe(c *gin.Context) {
	c.JSON(http.StatusOK, h.Suggester.Current())
}

// ViewRecipe puts a recipe, usually a saved one, on display.
func (h *Handler) ViewRecipe(c *gin.Context) {
	r, ok := bindRecipe(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Suggester.View(r))
}

// ClearRecipe empties the display.
func (h *Handler) ClearRecipe(c *gin.Context) {
	c.JSON(http.StatusOK, h.Suggester.Clear())
}

type detectRequest struct {
	ImageDataURI string `json:"imageDataUri"`
}

// DetectDish identifies the dish in a data URI photo.
func (h *Handler) DetectDish(c *gin.Context) {
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %s", err.Error())})
		return
	}
	h.detect(c, req.ImageDataURI)
}

// allowedExtensions maps accepted upload extensions to their MIME types.
var allowedExtensions = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
}

// DetectDishUpload identifies the dish in an uploaded photo.
func (h *Handler) DetectDishUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("get form err: %s", err.Error()))
		return
	}

	extension := strings.ToLower(filepath.Ext(file.Filename))
	mimeType, ok := allowedExtensions[extension]
	if !ok {
		c.String(http.StatusBadRequest, "Invalid file type. Only JPEG, JPG, and PNG images are allowed.")
		return
	}

	imageData, err := readUpload(file)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	h.detect(c, imagedata.ToDataURI(mimeType, imageData))
}

func (h *Handler) detect(c *gin.Context, dataURI string) {
	d, err := h.Suggester.Detect(c.Request.Context(), dataURI)
	if err != nil {
		if errors.Is(err, recipe.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "imageDataUri"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if d.Kind == recipe.DetectionFailed {
		c.JSON(http.StatusBadGateway, d)
		return
	}
	c.JSON(http.StatusOK, d)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open file err: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read image err: %w", err)
	}
	return data, nil
}

// Notifications drains the pending notices.
func (h *Handler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, h.Notices.Drain())
}

// bindRecipe reads a recipe body and requires a name.
func bindRecipe(c *gin.Context) (recipe.Recipe, bool) {
	var r recipe.Recipe
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid recipe: %s", err.Error())})
		return recipe.Recipe{}, false
	}
	if r.RecipeName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe name is required", "field": "recipeName"})
		return recipe.Recipe{}, false
	}
	return r, true
}

func storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), storeTimeout)
}
