package recipe

import "errors"

// Sentinel errors used across layers.
var (
	ErrNoIngredients     = errors.New("no ingredients")
	ErrEmptyOutput       = errors.New("model returned no recipe")
	ErrBlankName         = errors.New("playlist name cannot be empty")
	ErrPlaylistExists    = errors.New("playlist already exists")
	ErrPlaylistNotFound  = errors.New("playlist not found")
	ErrInvalidImage      = errors.New("invalid image data uri")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
