// Package testutil provides shared helpers for tests.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output. Use in
// tests to reduce noise.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
