package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-1.5-flash"

// generator is the part of *genai.GenerativeModel the client uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client is a client for the Gemini API.
type Client struct {
	genai   *genai.Client
	suggest generator
	detect  generator
	log     *zap.Logger
}

// NewClient creates a new Gemini client. Both models answer in JSON shaped by
// a response schema.
func NewClient(ctx context.Context, apiKey, model string, log *zap.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultModel
	}

	suggest := client.GenerativeModel(model)
	suggest.ResponseMIMEType = "application/json"
	suggest.ResponseSchema = recipeSchema

	detect := client.GenerativeModel(model)
	detect.ResponseMIMEType = "application/json"
	detect.ResponseSchema = dishSchema

	return &Client{genai: client, suggest: suggest, detect: detect, log: log}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.genai.Close()
}

var recipeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"recipeName":     {Type: genai.TypeString, Description: "The name of the suggested recipe."},
		"ingredients":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Every ingredient the recipe needs."},
		"instructions":   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Step-by-step instructions."},
		"calorieCount":   {Type: genai.TypeNumber, Description: "Approximate calories per serving.", Nullable: true},
		"spiceLevel":     {Type: genai.TypeString, Description: "Spice level, e.g. Mild, Medium, Spicy."},
		"regionalFlavor": {Type: genai.TypeString, Description: "Regional origin or style of the dish."},
	},
	Required: []string{"recipeName", "ingredients", "instructions"},
}

var dishSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isFoodItem": {Type: genai.TypeBoolean, Description: "True if the image shows a food item."},
		"dishName":   {Type: genai.TypeString, Description: "The dish name, or a message such as 'Not a food item' or 'Dish not recognized'."},
	},
	Required: []string{"isFoodItem", "dishName"},
}

// SuggestRecipe asks the model for one recipe built around req.
func (c *Client) SuggestRecipe(ctx context.Context, req recipe.SuggestionRequest) (*recipe.Recipe, error) {
	prompt, err := recipe.SuggestionPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	resp, err := c.suggest.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}
	raw, err := firstJSON(resp)
	if err != nil {
		return nil, err
	}

	var r recipe.Recipe
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe JSON: %w", err)
	}
	if r.RecipeName == "" {
		return nil, fmt.Errorf("%w: recipe has no name", recipe.ErrEmptyOutput)
	}
	c.log.Debug("gemini suggested recipe", zap.String("recipe", r.RecipeName), zap.Int("ingredients", len(req.Ingredients)))
	return &r, nil
}

// DetectDish identifies the dish in a photo given as a data URI. Errors are
// folded into a Failed detection.
func (c *Client) DetectDish(ctx context.Context, dataURI string) recipe.Detection {
	img, err := imagedata.Prepare(dataURI)
	if err != nil {
		return recipe.Failed(err.Error())
	}

	resp, err := c.detect.GenerateContent(ctx,
		genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		genai.Text(recipe.DetectionPrompt),
	)
	if err != nil {
		c.log.Warn("gemini dish detection failed", zap.Error(err))
		return recipe.Failed(err.Error())
	}
	raw, err := firstJSON(resp)
	if err != nil {
		return recipe.Failed(err.Error())
	}

	var out recipe.DishOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return recipe.Failed(fmt.Sprintf("failed to unmarshal detection JSON: %v", err))
	}
	return out.Classify()
}

// firstJSON returns the JSON object in the first candidate. The object is cut
// out between the outermost braces in case the model wrapped it in markdown.
func firstJSON(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini", recipe.ErrEmptyOutput)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	text := b.String()

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start > end {
		return "", fmt.Errorf("%w: could not find JSON object in response", recipe.ErrEmptyOutput)
	}
	return text[start : end+1], nil
}
