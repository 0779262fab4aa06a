// Package utils provides shared logging, math, and text helpers.
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

// NopLogger returns a logger that discards everything. Used by components
// whose logger dependency is optional.
func NopLogger() *zap.Logger {
	return zap.NewNop()
}
