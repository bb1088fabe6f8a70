package app

import (
	"testing"

	"github.com/mediblaze/mediblaze/internal/testutil"
)

func TestClosePartiallyInitialized(t *testing.T) {
	// Setup cleans up with Close on failure, so Close must tolerate any
	// subset of fields being populated.
	a := &App{Logger: testutil.DiscardLogger()}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	called := false
	a = &App{Logger: testutil.DiscardLogger(), otelCleanup: func() { called = true }}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !called {
		t.Error("otel cleanup not invoked")
	}
}
