package recipe

import (
	"strings"
	"text/template"
)

var suggestionPrompt = template.Must(template.New("suggestion").Funcs(template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}).Parse(
	`You are a helpful and warm Indian mom. A user will give you the ingredients they have available` +
		`{{if .SpiceLevel}}, their desired spice level ({{.SpiceLevel}}){{end}}` +
		`{{if .RegionalFlavor}} and their regional flavor preference ({{.RegionalFlavor}}){{end}}. ` +
		`Respond with a delicious Indian recipe they can make using mostly those ingredients; you may add common pantry staples if necessary.
{{if .SpiceLevel}}
Keep to the preferred spice level: {{.SpiceLevel}}.{{end}}{{if .RegionalFlavor}}
Keep to the preferred regional flavor: {{.RegionalFlavor}}.{{end}}

Provide these details:
- recipeName: the name of the dish.
- ingredients: every ingredient the recipe needs.
- instructions: clear, step-by-step cooking instructions.
- calorieCount: estimated calories per serving, only if you can reasonably estimate it.
- spiceLevel: the resulting spice level (Mild, Medium, Spicy).
- regionalFlavor: the regional origin or style of the dish (e.g. Punjabi, Bengali, South Indian).

Available ingredients: {{join .Ingredients}}

Return the recipe as JSON matching the response schema.`))

// SuggestionPrompt renders the fixed suggestion prompt for req.
func SuggestionPrompt(req SuggestionRequest) (string, error) {
	var b strings.Builder
	if err := suggestionPrompt.Execute(&b, req); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DetectionPrompt is sent together with the dish photo.
const DetectionPrompt = `You are an expert food identification AI. Look at the image carefully and decide:
1. Whether the image mainly shows a food item.
2. If it does, the name of the dish.

Answer as JSON matching the response schema. If the image is not food, set isFoodItem to false and dishName to "` + NotFoodMessage + `". ` +
	`If it is food but you cannot identify the dish, set dishName to "` + UnrecognizedMessage + `". Do not invent dishes if unsure.`
