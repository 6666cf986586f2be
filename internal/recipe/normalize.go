package recipe

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var ingredientSeparators = regexp.MustCompile(`[\n,]+`)

// NormalizeIngredients splits free text on commas and newlines, trims every
// piece and drops the empty ones. Order is preserved.
func NormalizeIngredients(raw string) []string {
	return lo.FilterMap(ingredientSeparators.Split(raw, -1), func(item string, _ int) (string, bool) {
		item = strings.TrimSpace(item)
		return item, item != ""
	})
}
