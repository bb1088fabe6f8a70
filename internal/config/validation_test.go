package config

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "test-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"unknown provider", func(c *Config) { c.Provider = "anthropic" }, ErrInvalidProvider},
		{"ollama without host", func(c *Config) { c.Provider = ProviderOllama; c.OllamaHost = "" }, ErrInvalidOllamaHost},
		{"ollama with host ok", func(c *Config) { c.Provider = ProviderOllama; c.OllamaHost = "http://localhost:11434" }, nil},
		{"openai ok", func(c *Config) { c.Provider = ProviderOpenAI }, nil},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, ErrInvalidTemperature},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, ErrInvalidTemperature},
		{"max tokens zero", func(c *Config) { c.MaxTokens = 0 }, ErrInvalidMaxTokens},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"empty postgres host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"postgres port out of range", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
		{"search results zero", func(c *Config) { c.WebSearch.MaxResults = 0 }, ErrInvalidSearchResults},
		{"search results too many", func(c *Config) { c.WebSearch.MaxResults = 50 }, ErrInvalidSearchResults},
		{"chunk size zero", func(c *Config) { c.Ingest.ChunkSize = 0 }, ErrInvalidChunking},
		{"overlap at chunk size", func(c *Config) { c.Ingest.ChunkOverlap = c.Ingest.ChunkSize }, ErrInvalidChunking},
		{"batch size zero", func(c *Config) { c.Ingest.BatchSize = 0 }, ErrInvalidChunking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var c *Config
	if !errors.Is(c.Validate(), ErrConfigNil) {
		t.Error("nil config must return ErrConfigNil")
	}
}

func TestValidateMissingGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg := validConfig()
	if !errors.Is(cfg.Validate(), ErrMissingAPIKey) {
		t.Error("gemini provider without GEMINI_API_KEY must fail")
	}
}
