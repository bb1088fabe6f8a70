// Package agent runs the medical assistant conversation loop.
package agent

import "errors"

// Sentinel errors checked with errors.Is() by the HTTP layer for status
// mapping.
var (
	// ErrInvalidSession indicates the session ID is invalid or malformed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates agent execution failed.
	ErrExecutionFailed = errors.New("execution failed")
)
