package session

import "errors"

// History limits. These match the config package defaults; the store clamps
// rather than erroring so callers can pass whatever the API received.
const (
	// DefaultHistoryLimit is the default number of messages to load.
	DefaultHistoryLimit int32 = 10

	// MaxHistoryLimit is the absolute maximum to prevent OOM.
	MaxHistoryLimit int32 = 1000
)

// TitleMaxLength is the maximum stored session title length in characters.
const TitleMaxLength = 100

// Sentinel errors for session operations, checked with errors.Is().
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSessionID indicates the session ID is not a valid UUID.
	ErrInvalidSessionID = errors.New("invalid session ID")
)

// NormalizeHistoryLimit clamps the history limit value.
func NormalizeHistoryLimit(limit int32) int32 {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
