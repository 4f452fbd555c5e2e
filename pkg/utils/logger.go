package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewNamedLogger returns NewLogger(debug) scoped to a component name.
func NewNamedLogger(name string, debug bool) (*zap.Logger, error) {
	l, err := NewLogger(debug)
	if err != nil {
		return nil, err
	}
	return l.Named(name), nil
}
