package recipe

import (
	"encoding/json"
	"strings"
)

// Recipe is the structured suggestion returned by an AI provider. It is not
// modified after it is returned.
type Recipe struct {
	RecipeName     string   `json:"recipeName" jsonschema_description:"The name of the suggested recipe."`
	Ingredients    []string `json:"ingredients" jsonschema_description:"The list of ingredients required for the recipe (may include items not originally provided if essential)."`
	Instructions   []string `json:"instructions" jsonschema_description:"Step-by-step instructions to make the recipe."`
	CalorieCount   *float64 `json:"calorieCount,omitempty" jsonschema_description:"Approximate calorie count per serving."`
	SpiceLevel     string   `json:"spiceLevel,omitempty" jsonschema_description:"Spice level (e.g. Mild, Medium, Spicy)."`
	RegionalFlavor string   `json:"regionalFlavor,omitempty" jsonschema_description:"Regional origin or style (e.g. North Indian, Gujarati, South Indian)."`
}

// UnmarshalJSON implements the json.Unmarshaler interface for Recipe.
func (r *Recipe) UnmarshalJSON(data []byte) error {
	type Alias Recipe // avoids infinite recursion
	var aux Alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Recipe(aux)

	r.RecipeName = strings.TrimSpace(r.RecipeName)
	*r = r.withLists()
	return nil
}

// withLists replaces nil lists with empty ones so they encode as [].
func (r Recipe) withLists() Recipe {
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Instructions == nil {
		r.Instructions = []string{}
	}
	return r
}

// SavedRecipe is a Recipe kept in the saved-recipes store.
type SavedRecipe struct {
	ID string `json:"id"`
	Recipe
}

// UnmarshalJSON keeps the id; the embedded Recipe's decoder would otherwise
// be promoted and drop it.
func (s *SavedRecipe) UnmarshalJSON(data []byte) error {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if err := s.Recipe.UnmarshalJSON(data); err != nil {
		return err
	}
	s.ID = head.ID
	return nil
}

// Playlist is a user-named, ordered group of saved recipe ids.
type Playlist struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	RecipeIDs []string `json:"recipeIds"`
}

// Contains reports whether recipeID is in the playlist.
func (p Playlist) Contains(recipeID string) bool {
	for _, id := range p.RecipeIDs {
		if id == recipeID {
			return true
		}
	}
	return false
}

func (p Playlist) clone() Playlist {
	p.RecipeIDs = append([]string{}, p.RecipeIDs...)
	return p
}

// AnyPreference is the option value meaning "no preference".
const AnyPreference = "Any"

// SpiceLevels and RegionalFlavors are the choices offered to the user.
var (
	SpiceLevels     = []string{AnyPreference, "Mild", "Medium", "Spicy", "Very Spicy"}
	RegionalFlavors = []string{AnyPreference, "North Indian", "South Indian", "East Indian", "West Indian", "Gujarati", "Punjabi", "Bengali", "Maharashtrian"}
)

// Preferences are the optional choices sent alongside the ingredients.
type Preferences struct {
	SpiceLevel     string `json:"spiceLevel,omitempty"`
	RegionalFlavor string `json:"regionalFlavor,omitempty"`
}

// SuggestionRequest is what gets sent to the AI provider. Unset preferences are
// omitted entirely.
type SuggestionRequest struct {
	Ingredients    []string `json:"ingredients"`
	SpiceLevel     string   `json:"spiceLevel,omitempty"`
	RegionalFlavor string   `json:"regionalFlavor,omitempty"`
}

// NewSuggestionRequest drops any preference that is blank or "Any".
func NewSuggestionRequest(ingredients []string, prefs Preferences) SuggestionRequest {
	req := SuggestionRequest{Ingredients: ingredients}
	if isSet(prefs.SpiceLevel) {
		req.SpiceLevel = strings.TrimSpace(prefs.SpiceLevel)
	}
	if isSet(prefs.RegionalFlavor) {
		req.RegionalFlavor = strings.TrimSpace(prefs.RegionalFlavor)
	}
	return req
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != AnyPreference
}

// SpiceBadge returns the display label for a spice level. ok is false for
// levels that get no badge.
func SpiceBadge(level string) (label string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "mild":
		return "Mild", true
	case "medium":
		return "Medium", true
	case "spicy", "hot":
		return "Spicy", true
	case "very spicy":
		return "Very Spicy", true
	default:
		return "", false
	}
}
