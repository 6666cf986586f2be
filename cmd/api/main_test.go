package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pantrychef/internal/api"
	"pantrychef/internal/cooking"
	"pantrychef/internal/notify"
	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
	"pantrychef/internal/storage"
	"pantrychef/internal/suggest"
)

// mockProvider is a mock of an AI provider.
type mockProvider struct {
	returnError     error
	detection       recipe.Detection
	receivedRequest recipe.SuggestionRequest
	receivedURI     string
	calls           int
}

// SuggestRecipe mocks the SuggestRecipe method.
func (m *mockProvider) SuggestRecipe(ctx context.Context, req recipe.SuggestionRequest) (*recipe.Recipe, error) {
	m.calls++
	m.receivedRequest = req
	if m.returnError != nil {
		return nil, m.returnError
	}
	return &recipe.Recipe{
		RecipeName:   "Aloo Gobi",
		Ingredients:  []string{"potato", "cauliflower", "turmeric"},
		Instructions: []string{"Chop the vegetables", "Fry with spices", "Garnish"},
		SpiceLevel:   "Medium",
	}, nil
}

// DetectDish mocks the DetectDish method.
func (m *mockProvider) DetectDish(ctx context.Context, dataURI string) recipe.Detection {
	m.receivedURI = dataURI
	return m.detection
}

// SetError sets the error to be returned by SuggestRecipe.
func (m *mockProvider) SetError(err error) {
	m.returnError = err
}

type testApp struct {
	router   *gin.Engine
	provider *mockProvider
	kv       *storage.MemoryKV
	inbox    *notify.Inbox
	sessions *cooking.Manager
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	kv := storage.NewMemoryKV()
	inbox := notify.NewInbox(0)
	provider := &mockProvider{detection: recipe.Detected("Masala Dosa")}

	sessions := cooking.NewManager(inbox, log)
	t.Cleanup(sessions.Shutdown)

	handler := api.NewHandler(
		suggest.New(provider, provider, inbox, log, suggest.WithTimeout(time.Second)),
		recipe.NewSavedStore(kv, inbox, log),
		recipe.NewPlaylistStore(kv, inbox, log),
		sessions,
		inbox,
		log,
	)
	return &testApp{
		router:   newRouter(handler, []string{"http://localhost:8081"}, log),
		provider: provider,
		kv:       kv,
		inbox:    inbox,
		sessions: sessions,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func noticeTitles(notices []notify.Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

func TestSuggestRecipe(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/recipes/suggest", gin.H{
		"ingredients":    "onion, tomato,, paneer\nginger",
		"spiceLevel":     "Any",
		"regionalFlavor": "Punjabi",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	st := decode[suggest.State](t, rr)
	require.NotNil(t, st.Recipe)
	assert.Equal(t, "Aloo Gobi", st.Recipe.RecipeName)
	assert.Equal(t, []string{"onion", "tomato", "paneer", "ginger"}, app.provider.receivedRequest.Ingredients)
	assert.Empty(t, app.provider.receivedRequest.SpiceLevel)
	assert.Equal(t, "Punjabi", app.provider.receivedRequest.RegionalFlavor)

	cur := decode[suggest.State](t, app.do(t, http.MethodGet, "/recipes/current", nil))
	require.NotNil(t, cur.Recipe)
	assert.Equal(t, "Aloo Gobi", cur.Recipe.RecipeName)

	cleared := decode[suggest.State](t, app.do(t, http.MethodDelete, "/recipes/current", nil))
	assert.Nil(t, cleared.Recipe)
}

func TestSuggestRecipe_Validation(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodPost, "/recipes/suggest", gin.H{"ingredients": " ,, \n "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "ingredients", body["field"])
	assert.Zero(t, app.provider.calls)
}

func TestSuggestRecipe_ProviderBusy(t *testing.T) {
	app := newTestApp(t)
	app.provider.SetError(errors.New("model overloaded"))

	rr := app.do(t, http.MethodPost, "/recipes/suggest", gin.H{"ingredients": "rice, dal"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	notices := decode[[]notify.Notice](t, app.do(t, http.MethodGet, "/notifications", nil))
	require.Len(t, notices, 1)
	assert.Equal(t, "Uh oh! Something went wrong.", notices[0].Title)
	assert.Equal(t, notify.VariantDestructive, notices[0].Variant)

	again := decode[[]notify.Notice](t, app.do(t, http.MethodGet, "/notifications", nil))
	assert.Empty(t, again)
}

func TestRecipeOptions(t *testing.T) {
	app := newTestApp(t)
	body := decode[map[string][]string](t, app.do(t, http.MethodGet, "/recipes/options", nil))
	assert.Equal(t, "Any", body["spiceLevels"][0])
	assert.Contains(t, body["regionalFlavors"], "Bengali")
}

func TestDetectDish(t *testing.T) {
	app := newTestApp(t)
	uri := imagedata.ToDataURI("image/png", pngImage(t))

	rr := app.do(t, http.MethodPost, "/dishes/detect", gin.H{"imageDataUri": uri})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, recipe.Detected("Masala Dosa"), decode[recipe.Detection](t, rr))
	assert.Equal(t, uri, app.provider.receivedURI)

	rr = app.do(t, http.MethodPost, "/dishes/detect", gin.H{"imageDataUri": "nope"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	app.provider.detection = recipe.NotFood()
	rr = app.do(t, http.MethodPost, "/dishes/detect", gin.H{"imageDataUri": uri})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, recipe.DishNotFood, decode[recipe.Detection](t, rr).Kind)

	app.provider.detection = recipe.Failed("unavailable")
	rr = app.do(t, http.MethodPost, "/dishes/detect", gin.H{"imageDataUri": uri})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, 1, app.inbox.Len())
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.Copy(part, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/dishes/detect/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDetectDishUpload(t *testing.T) {
	app := newTestApp(t)

	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, uploadRequest(t, "thali.png", pngImage(t)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Masala Dosa", decode[recipe.Detection](t, rr).DishName)
	assert.Contains(t, app.provider.receivedURI, "data:image/png;base64,")

	rr = httptest.NewRecorder()
	app.router.ServeHTTP(rr, uploadRequest(t, "menu.gif", pngImage(t)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid file type. Only JPEG, JPG, and PNG images are allowed.", rr.Body.String())
}

func TestSavedRecipes(t *testing.T) {
	app := newTestApp(t)
	aloo := gin.H{"recipeName": "Aloo Gobi", "ingredients": []string{"potato"}, "instructions": []string{"Cook"}}

	rr := app.do(t, http.MethodPost, "/saved", aloo)
	require.Equal(t, http.StatusCreated, rr.Code)
	first := decode[struct {
		Recipe  recipe.SavedRecipe `json:"recipe"`
		Created bool               `json:"created"`
	}](t, rr)
	assert.True(t, first.Created)

	rr = app.do(t, http.MethodPost, "/saved", aloo)
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[struct {
		Recipe recipe.SavedRecipe `json:"recipe"`
	}](t, rr)
	assert.Equal(t, first.Recipe.ID, second.Recipe.ID)

	all := decode[[]recipe.SavedRecipe](t, app.do(t, http.MethodGet, "/saved", nil))
	assert.Len(t, all, 1)

	check := decode[map[string]any](t, app.do(t, http.MethodGet, "/saved/check?name=Aloo+Gobi", nil))
	assert.Equal(t, true, check["saved"])
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodGet, "/saved/check", nil).Code)

	toggled := decode[map[string]any](t, app.do(t, http.MethodPost, "/saved/toggle", aloo))
	assert.Equal(t, false, toggled["saved"])

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/saved/"+first.Recipe.ID, nil).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/saved", gin.H{"recipeName": ""}).Code)

	assert.Equal(t, []string{"Recipe Saved!", "Already Saved", "Recipe Removed"}, noticeTitles(app.inbox.Drain()))
}

func TestPlaylists(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	saved := decode[struct {
		Recipe recipe.SavedRecipe `json:"recipe"`
	}](t, app.do(t, http.MethodPost, "/saved", gin.H{"recipeName": "Aloo Gobi", "instructions": []string{"Cook"}})).Recipe

	rr := app.do(t, http.MethodPost, "/playlists", gin.H{"name": "Weeknight"})
	require.Equal(t, http.StatusCreated, rr.Code)
	pl := decode[recipe.Playlist](t, rr)

	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPost, "/playlists", gin.H{"name": "weeknight"}).Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/playlists", gin.H{"name": "  "}).Code)

	rr = app.do(t, http.MethodPost, "/playlists/"+pl.ID+"/recipes", gin.H{"recipeId": saved.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = app.do(t, http.MethodPost, "/playlists/"+pl.ID+"/recipes", gin.H{"recipeId": saved.ID})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{saved.ID}, decode[recipe.Playlist](t, rr).RecipeIDs)

	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodPost, "/playlists/missing/recipes", gin.H{"recipeId": saved.ID}).Code)

	// Unsaving leaves the playlist entry behind as a dangling id.
	require.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/saved/"+saved.ID, nil).Code)
	detail := decode[struct {
		RecipeIDs   []string             `json:"recipeIds"`
		Recipes     []recipe.SavedRecipe `json:"recipes"`
		DanglingIDs []string             `json:"danglingIds"`
	}](t, app.do(t, http.MethodGet, "/playlists/"+pl.ID, nil))
	assert.Equal(t, []string{saved.ID}, detail.RecipeIDs)
	assert.Empty(t, detail.Recipes)
	assert.Equal(t, []string{saved.ID}, detail.DanglingIDs)

	rr = app.do(t, http.MethodDelete, "/playlists/"+pl.ID+"/recipes/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[recipe.Playlist](t, rr).RecipeIDs)

	before, _, err := app.kv.Get(ctx, recipe.SavedRecipesKey)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, "/playlists/"+pl.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/playlists/"+pl.ID, nil).Code)
	after, _, err := app.kv.Get(ctx, recipe.SavedRecipesKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.Empty(t, decode[[]recipe.Playlist](t, app.do(t, http.MethodGet, "/playlists", nil)))
}

func TestCookingMode(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/cooking/sessions", nil).Code)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/recipes/suggest", gin.H{"ingredients": "potato, cauliflower"}).Code)
	rr := app.do(t, http.MethodPost, "/cooking/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	snap := decode[cooking.Snapshot](t, rr)
	assert.Equal(t, "Aloo Gobi", snap.RecipeName)
	assert.Equal(t, 3, snap.TotalSteps)
	base := "/cooking/sessions/" + snap.ID

	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPost, base+"/previous", nil).Code)

	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, base+"/timer/start", gin.H{"minutes": 0}).Code)
	rr = app.do(t, http.MethodPost, base+"/timer/start", gin.H{"minutes": 5})
	require.Equal(t, http.StatusOK, rr.Code)
	snap = decode[cooking.Snapshot](t, rr)
	assert.Equal(t, cooking.TimerRunning, snap.Timer.State)
	assert.Equal(t, "05:00", snap.Timer.Display)

	assert.Equal(t, http.StatusConflict, app.do(t, http.MethodPost, base+"/timer/resume", nil).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, base+"/timer/pause", nil).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, base+"/timer/resume", nil).Code)

	snap = decode[cooking.Snapshot](t, app.do(t, http.MethodPost, base+"/next", nil))
	assert.Equal(t, 1, snap.StepIndex)
	assert.Equal(t, cooking.TimerIdle, snap.Timer.State)

	snap = decode[cooking.Snapshot](t, app.do(t, http.MethodPost, base+"/timer/reset", nil))
	assert.Equal(t, "00:00", snap.Timer.Display)

	assert.Equal(t, http.StatusNoContent, app.do(t, http.MethodDelete, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, base, nil).Code)

	titles := noticeTitles(app.inbox.Drain())
	assert.Contains(t, titles, "Invalid Timer")
}

func TestCookingMode_SavedRecipeWithoutSteps(t *testing.T) {
	app := newTestApp(t)
	saved := decode[struct {
		Recipe recipe.SavedRecipe `json:"recipe"`
	}](t, app.do(t, http.MethodPost, "/saved", gin.H{"recipeName": "Plain Curd"})).Recipe

	rr := app.do(t, http.MethodPost, "/cooking/sessions", gin.H{"savedRecipeId": saved.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Zero(t, app.sessions.Len())
}

func TestCookingMode_ChunkedEmptyBody(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/recipes/suggest", gin.H{"ingredients": "potato, cauliflower"}).Code)

	req := httptest.NewRequest(http.MethodPost, "/cooking/sessions", io.NopCloser(bytes.NewReader(nil)))
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "Aloo Gobi", decode[cooking.Snapshot](t, rr).RecipeName)

	rr = app.do(t, http.MethodPost, "/cooking/sessions", gin.H{"recipe": "not an object"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	app := newTestApp(t)

	rr := app.do(t, http.MethodGet, "/notifications", nil)
	assert.NotEmpty(t, rr.Header().Get(api.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	app.router.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(api.RequestIDHeader))
}
