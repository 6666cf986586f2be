// Package suggest coordinates recipe suggestions and dish detection for the
// single user of the app, including which recipe is currently on screen.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pantrychef/internal/notify"
	"pantrychef/internal/platform/imagedata"
	"pantrychef/internal/recipe"
)

var (
	// ErrProviderBusy is returned when the AI provider call failed.
	ErrProviderBusy = errors.New("recipe provider is unavailable")
	// ErrSuperseded is returned when a newer submission started while this
	// one was waiting on the provider. Its result was discarded.
	ErrSuperseded = errors.New("suggestion superseded by a newer request")
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 45 * time.Second

// minIngredientsLength is the shortest raw ingredient text accepted.
const minIngredientsLength = 3

// Generator produces a recipe suggestion.
type Generator interface {
	SuggestRecipe(ctx context.Context, req recipe.SuggestionRequest) (*recipe.Recipe, error)
}

// Detector identifies the dish in a photo.
type Detector interface {
	DetectDish(ctx context.Context, dataURI string) recipe.Detection
}

// ValidationError reports a bad form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return recipe.ErrNoIngredients
}

// State is what the suggestion panel shows.
type State struct {
	Recipe     *recipe.Recipe `json:"recipe"`
	Generation uint64         `json:"generation"`
	Loading    bool           `json:"loading"`
}

// Service holds the displayed recipe. Each submission or view takes a new
// generation; a provider response is applied only while its generation is
// still the latest.
type Service struct {
	gen     Generator
	det     Detector
	n       notify.Notifier
	log     *zap.Logger
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	current    *recipe.Recipe
	loading    bool
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New creates a Service.
func New(gen Generator, det Detector, notifier notify.Notifier, log *zap.Logger, opts ...Option) *Service {
	s := &Service{gen: gen, det: det, n: notifier, log: log, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit normalizes the raw ingredient text and asks the provider for a
// recipe. Validation failures never reach the provider and leave the display
// as it was.
func (s *Service) Submit(ctx context.Context, raw string, prefs recipe.Preferences) (State, error) {
	if len(strings.TrimSpace(raw)) < minIngredientsLength {
		return State{}, &ValidationError{Field: "ingredients", Message: "Please list at least one ingredient."}
	}
	ingredients := recipe.NormalizeIngredients(raw)
	if len(ingredients) == 0 {
		return State{}, &ValidationError{Field: "ingredients", Message: "Please enter valid ingredients separated by commas or newlines."}
	}
	req := recipe.NewSuggestionRequest(ingredients, prefs)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.current = nil
	s.loading = true
	s.mu.Unlock()

	s.log.Info("requesting recipe suggestion",
		zap.Uint64("generation", gen),
		zap.Strings("ingredients", req.Ingredients),
		zap.String("spice_level", req.SpiceLevel),
		zap.String("regional_flavor", req.RegionalFlavor),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	r, err := s.gen.SuggestRecipe(callCtx, req)
	if err == nil && r == nil {
		err = recipe.ErrEmptyOutput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.log.Info("discarding stale suggestion", zap.Uint64("generation", gen), zap.Uint64("latest", s.generation))
		return State{Generation: gen}, ErrSuperseded
	}
	s.loading = false

	if err != nil {
		s.log.Error("recipe suggestion failed", zap.Uint64("generation", gen), zap.Error(err))
		s.n.Notify(ctx, notify.Destructive("Uh oh! Something went wrong.", "Maa is busy right now. Please try again later."))
		return State{Generation: gen}, fmt.Errorf("%w: %v", ErrProviderBusy, err)
	}

	s.current = r
	return State{Recipe: r, Generation: gen}, nil
}

// Current returns what is on screen.
func (s *Service) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Recipe: s.current, Generation: s.generation, Loading: s.loading}
}

// View shows r, typically a saved recipe. Any suggestion still in flight is
// discarded when it returns.
func (s *Service) View(r recipe.Recipe) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = &r
	s.loading = false
	return State{Recipe: s.current, Generation: s.generation}
}

// Clear empties the display.
func (s *Service) Clear() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.current = nil
	s.loading = false
	return State{Generation: s.generation}
}

// Detect identifies the dish in a data URI photo. A malformed URI is an
// error; everything that happens after that is reported in the Detection.
func (s *Service) Detect(ctx context.Context, dataURI string) (recipe.Detection, error) {
	if _, err := imagedata.Parse(dataURI); err != nil {
		return recipe.Detection{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d := s.det.DetectDish(callCtx, dataURI)
	if d.Kind == recipe.DetectionFailed {
		s.log.Error("dish detection failed", zap.String("reason", d.Reason))
		s.n.Notify(ctx, notify.Destructive("Uh oh! Something went wrong.", "Could not identify the dish. Please try again later."))
	}
	s.log.Debug("dish detection finished", zap.String("kind", string(d.Kind)))
	return d, nil
}
