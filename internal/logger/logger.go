// Package logger builds the zap logger shared by every component.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Modes accepted by New.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
	ModeOff         = "off"
)

// New returns a logger for the given mode. An empty mode means development.
func New(mode string) (*zap.Logger, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeProduction:
		return zap.NewProduction()
	case "", ModeDevelopment:
		return zap.NewDevelopment()
	case ModeOff:
		return zap.NewNop(), nil
	default:
		return nil, fmt.Errorf("unknown log mode %q", mode)
	}
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync(log *zap.Logger) {
	_ = log.Sync()
}
