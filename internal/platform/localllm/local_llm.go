package localllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/invopop/jsonschema"
	"go.uber.org/zap"

	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
)

// Defaults for an LM Studio style server on the same machine.
const (
	DefaultURL   = "http://localhost:1234/v1/chat/completions"
	DefaultModel = "gemma-3-12b-it:2"
)

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	httpClient *http.Client
	apiURL     string
	model      string
	log        *zap.Logger

	recipeSchema map[string]any
	dishSchema   map[string]any
}

// NewClient creates a new client for the local LLM. Empty arguments fall back
// to the defaults.
func NewClient(apiURL, model string, httpClient *http.Client, log *zap.Logger) *Client {
	if apiURL == "" {
		apiURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient:   httpClient,
		apiURL:       apiURL,
		model:        model,
		log:          log,
		recipeSchema: reflectSchema(&recipe.Recipe{}),
		dishSchema:   reflectSchema(&recipe.DishOutput{}),
	}
}

func reflectSchema(v any) map[string]any {
	r := jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schemaJSON, _ := json.Marshal(r.Reflect(v))

	var m map[string]any
	_ = json.Unmarshal(schemaJSON, &m)
	return m
}

// Request represents the request body for the local LLM.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Message represents a message in the request.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// Content represents the content of a message.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents the image URL in the content.
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat asks the server to constrain output to a JSON schema.
type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

// JSONSchema is a named schema inside ResponseFormat.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// Response represents the response from the local LLM.
type Response struct {
	Choices []Choice `json:"choices"`
}

// Choice represents a choice in the response.
type Choice struct {
	Message ResponseMessage `json:"message"`
}

// ResponseMessage represents a message in the response.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateContent sends one user message and returns the text of the first
// choice.
func (c *Client) GenerateContent(ctx context.Context, content []Content, schemaName string, schema map[string]any) (string, error) {
	reqBody := Request{
		Model:       c.model,
		Messages:    []Message{{Role: "user", Content: content}},
		Temperature: 1,
		MaxTokens:   1024,
		ResponseFormat: &ResponseFormat{
			Type:       "json_schema",
			JSONSchema: JSONSchema{Name: schemaName, Schema: schema},
		},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	var llmResp Response
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(llmResp.Choices) == 0 || strings.TrimSpace(llmResp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: no content found in response", recipe.ErrEmptyOutput)
	}

	c.log.Debug("local llm responded", zap.String("schema", schemaName), zap.Int("bytes", len(llmResp.Choices[0].Message.Content)))
	return llmResp.Choices[0].Message.Content, nil
}

// SuggestRecipe asks the model for one recipe built around req.
func (c *Client) SuggestRecipe(ctx context.Context, req recipe.SuggestionRequest) (*recipe.Recipe, error) {
	prompt, err := recipe.SuggestionPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	responseText, err := c.GenerateContent(ctx, []Content{{Type: "text", Text: prompt}}, "recipe", c.recipeSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	var r recipe.Recipe
	if err := json.Unmarshal([]byte(cleanJSON(responseText)), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe from response: %w", err)
	}
	if r.RecipeName == "" {
		return nil, fmt.Errorf("%w: recipe has no name", recipe.ErrEmptyOutput)
	}
	return &r, nil
}

// DetectDish identifies the dish in a photo given as a data URI.
func (c *Client) DetectDish(ctx context.Context, dataURI string) recipe.Detection {
	img, err := imagedata.Prepare(dataURI)
	if err != nil {
		return recipe.Failed(err.Error())
	}

	content := []Content{
		{Type: "text", Text: recipe.DetectionPrompt},
		{Type: "image_url", ImageURL: &ImageURL{URL: imagedata.ToDataURI(img.MIMEType, img.Data)}},
	}
	responseText, err := c.GenerateContent(ctx, content, "dish", c.dishSchema)
	if err != nil {
		c.log.Warn("local llm dish detection failed", zap.Error(err))
		return recipe.Failed(err.Error())
	}

	var out recipe.DishOutput
	if err := json.Unmarshal([]byte(cleanJSON(responseText)), &out); err != nil {
		return recipe.Failed(fmt.Sprintf("failed to unmarshal detection from response: %v", err))
	}
	return out.Classify()
}

// cleanJSON strips a markdown code fence some models add despite the schema.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
