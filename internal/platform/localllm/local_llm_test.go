package localllm

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
)

// chatServer answers every request with content and records the last body.
func chatServer(t *testing.T, status int, content string, got *Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(Response{Choices: []Choice{{Message: ResponseMessage{Role: "assistant", Content: content}}}})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSuggestRecipe(t *testing.T) {
	var got Request
	srv := chatServer(t, http.StatusOK, "```json\n"+`{"recipeName":"Jeera Rice","ingredients":["rice","cumin"],"instructions":["Rinse","Cook"]}`+"\n```", &got)
	c := NewClient(srv.URL, "test-model", srv.Client(), zap.NewNop())

	r, err := c.SuggestRecipe(context.Background(), recipe.SuggestionRequest{Ingredients: []string{"rice", "cumin"}, RegionalFlavor: "Punjabi"})
	require.NoError(t, err)
	assert.Equal(t, "Jeera Rice", r.RecipeName)
	assert.Equal(t, []string{"rice", "cumin"}, r.Ingredients)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content[0].Text, "rice, cumin")
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_schema", got.ResponseFormat.Type)
	props, ok := got.ResponseFormat.JSONSchema.Schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "recipeName")
	assert.Contains(t, props, "instructions")
}

func TestSuggestRecipeFailures(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := chatServer(t, http.StatusServiceUnavailable, "", nil)
		_, err := NewClient(srv.URL, "", srv.Client(), zap.NewNop()).SuggestRecipe(context.Background(), recipe.SuggestionRequest{Ingredients: []string{"rice"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
	t.Run("empty", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, "   ", nil)
		_, err := NewClient(srv.URL, "", srv.Client(), zap.NewNop()).SuggestRecipe(context.Background(), recipe.SuggestionRequest{Ingredients: []string{"rice"}})
		assert.ErrorIs(t, err, recipe.ErrEmptyOutput)
	})
	t.Run("nameless", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, `{"recipeName":"","ingredients":[],"instructions":[]}`, nil)
		_, err := NewClient(srv.URL, "", srv.Client(), zap.NewNop()).SuggestRecipe(context.Background(), recipe.SuggestionRequest{Ingredients: []string{"rice"}})
		assert.ErrorIs(t, err, recipe.ErrEmptyOutput)
	})
}

func TestDetectDish(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	uri := imagedata.ToDataURI("image/png", buf.Bytes())

	var got Request
	srv := chatServer(t, http.StatusOK, `{"isFoodItem":true,"dishName":"Chole Bhature"}`, &got)
	d := NewClient(srv.URL, "", srv.Client(), zap.NewNop()).DetectDish(context.Background(), uri)
	assert.Equal(t, recipe.Detected("Chole Bhature"), d)

	require.Len(t, got.Messages[0].Content, 2)
	imgURL := got.Messages[0].Content[1].ImageURL
	require.NotNil(t, imgURL)
	assert.True(t, strings.HasPrefix(imgURL.URL, "data:image/png;base64,"))

	srv = chatServer(t, http.StatusOK, `{"isFoodItem":false,"dishName":"Not a food item"}`, nil)
	d = NewClient(srv.URL, "", srv.Client(), zap.NewNop()).DetectDish(context.Background(), uri)
	assert.Equal(t, recipe.DishNotFood, d.Kind)

	srv = chatServer(t, http.StatusInternalServerError, "", nil)
	d = NewClient(srv.URL, "", srv.Client(), zap.NewNop()).DetectDish(context.Background(), uri)
	assert.Equal(t, recipe.DetectionFailed, d.Kind)
	assert.NotEmpty(t, d.Reason)
}
