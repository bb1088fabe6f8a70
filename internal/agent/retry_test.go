package agent

import (
	"errors"
	"testing"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "rate limit", err: errors.New("googleai: rate limit exceeded"), want: true},
		{name: "http 429", err: errors.New("HTTP 429 Too Many Requests"), want: true},
		{name: "http 503", err: errors.New("server returned 503"), want: true},
		{name: "unavailable", err: errors.New("service UNAVAILABLE"), want: true},
		{name: "connection reset", err: errors.New("read: connection reset by peer"), want: true},
		{name: "timeout", err: errors.New("context deadline exceeded (Client.Timeout)"), want: true},
		{name: "invalid argument", err: errors.New("invalid argument: bad schema"), want: false},
		{name: "auth failure", err: errors.New("API key not valid"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryableError(tt.err); got != tt.want {
				t.Errorf("retryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.InitialInterval >= cfg.MaxInterval {
		t.Error("initial interval should be below max interval")
	}
}
