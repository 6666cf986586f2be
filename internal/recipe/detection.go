package recipe

import "strings"

// Messages the detection model uses in dishName instead of a dish.
const (
	NotFoodMessage      = "Not a food item"
	UnrecognizedMessage = "Dish not recognized"
)

// DetectionKind is the closed set of dish detection outcomes.
type DetectionKind string

const (
	DishDetected     DetectionKind = "detected"
	DishNotFood      DetectionKind = "not_food"
	DishUnrecognized DetectionKind = "unrecognized"
	DetectionFailed  DetectionKind = "failed"
)

// Detection is the result of looking at a dish photo. DishName is set only for
// DishDetected and Reason only for DetectionFailed.
type Detection struct {
	Kind     DetectionKind `json:"kind"`
	DishName string        `json:"dishName,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

func Detected(name string) Detection { return Detection{Kind: DishDetected, DishName: name} }
func NotFood() Detection { return Detection{Kind: DishNotFood} }
func Unrecognized() Detection { return Detection{Kind: DishUnrecognized} }
func Failed(reason string) Detection { return Detection{Kind: DetectionFailed, Reason: reason} }
func (d Detection) IsFood() bool { return d.Kind == DishDetected || d.Kind == DishUnrecognized }
func (d Detection) Succeeded() bool { return d.Kind != DetectionFailed }

// DishOutput is the raw structured answer of the detection model.
type DishOutput struct {
	IsFoodItem bool   `json:"isFoodItem" jsonschema_description:"True if the image contains a recognizable food item, false otherwise."`
	DishName   string `json:"dishName" jsonschema_description:"The name of the identified food dish. If not a food item or not identifiable, a message like 'Not a food item' or 'Dish not recognized'."`
}

// Classify turns the model's flag and free-text name into a Detection. This is
// the only place the model's sentinel messages are matched.
func (o DishOutput) Classify() Detection {
	name := strings.TrimSpace(o.DishName)
	switch {
	case !o.IsFoodItem, strings.EqualFold(name, NotFoodMessage):
		return NotFood()
	case name == "", strings.EqualFold(name, UnrecognizedMessage):
		return Unrecognized()
	default:
		return Detected(name)
	}
}
