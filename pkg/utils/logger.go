// Package utils provides shared logger construction.
package utils

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info
// level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewSessionLogger returns a logger carrying a fresh overlay-session id, so
// log lines from concurrent or successive sessions can be told apart.
func NewSessionLogger(debug bool) (*zap.Logger, error) {
	logger, err := NewLogger(debug)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("session", uuid.New().String())), nil
}
