package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// validConfig returns a config that passes Validate with the gemini provider.
func validConfig() *Config {
	return &Config{
		Provider:         ProviderGemini,
		ModelName:        "gemini-2.5-flash",
		Temperature:      0.3,
		MaxTokens:        1200,
		EmbedderModel:    DefaultGeminiEmbedderModel,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "mediblaze",
		PostgresPassword: "test_password_123",
		PostgresDBName:   "mediblaze",
		PostgresSSLMode:  "disable",
		WebSearch: WebSearchConfig{
			MaxResults:   3,
			TimeoutMs:    15000,
			AllowedSites: defaultTrustedSites(),
		},
		PageFetch: PageFetchConfig{TimeoutMs: 30000, MaxBodyBytes: 2 << 20},
		Ingest:    IngestConfig{ChunkSize: 500, ChunkOverlap: 20, BatchSize: 100},
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"gemini qualifies as googleai", ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"openai", ProviderOpenAI, "gpt-4o-mini", "openai/gpt-4o-mini"},
		{"already qualified untouched", ProviderGemini, "vertexai/gemini-pro", "vertexai/gemini-pro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := c.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty stays empty", "", ""},
		{"short fully masked", "pw123", maskedValue},
		{"exactly eight fully masked", "12345678", maskedValue},
		{"long keeps edges", "my_long_secret_key_123", "my<" + maskedValue + ">23"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	c := validConfig()
	c.PostgresPassword = "super_secret_database_password"

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "super_secret_database_password") {
		t.Error("password leaked into JSON output")
	}
	if !strings.Contains(string(data), maskedValue) {
		t.Error("masked placeholder missing from JSON output")
	}
}

func TestStringMasksPassword(t *testing.T) {
	c := validConfig()
	c.PostgresPassword = "another_secret_password_here"
	if s := c.String(); strings.Contains(s, "another_secret_password_here") {
		t.Error("password leaked via String()")
	}
}

func TestDefaultsIncludeRAGTopK(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cfg.RAGTopK != DefaultRAGTopK {
		t.Errorf("RAGTopK = %d, want %d", cfg.RAGTopK, DefaultRAGTopK)
	}
	if cfg.MaxTurns != 5 {
		t.Errorf("MaxTurns = %d, want 5", cfg.MaxTurns)
	}
}

func TestNormalizeMaxHistoryMessages(t *testing.T) {
	tests := []struct {
		name  string
		limit int32
		want  int32
	}{
		{"zero uses default", 0, DefaultMaxHistoryMessages},
		{"negative uses default", -5, DefaultMaxHistoryMessages},
		{"in range unchanged", 50, 50},
		{"above cap clamped", MaxAllowedHistoryMessages + 1, MaxAllowedHistoryMessages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMaxHistoryMessages(tt.limit); got != tt.want {
				t.Errorf("NormalizeMaxHistoryMessages(%d) = %d, want %d", tt.limit, got, tt.want)
			}
		})
	}
}
