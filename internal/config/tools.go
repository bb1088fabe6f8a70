package config

// defaultTrustedSites is the medical source allowlist for web search.
// Queries are scoped to these domains so the assistant cites reputable
// sources instead of whatever ranks first.
func defaultTrustedSites() []string {
	return []string{
		"who.int",
		"mayoclinic.org",
		"cdc.gov",
		"nih.gov",
		"medlineplus.gov",
		"healthline.com",
		"webmd.com",
	}
}

// WebSearchConfig holds web search tool configuration.
type WebSearchConfig struct {
	// MaxResults caps how many results a single search returns (default: 3)
	MaxResults int `mapstructure:"max_results" json:"max_results"`
	// TimeoutMs is the search request timeout in milliseconds (default: 15000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// AllowedSites is the trusted-domain allowlist appended to queries
	AllowedSites []string `mapstructure:"allowed_sites" json:"allowed_sites"`
}

// PageFetchConfig holds page-fetch tool configuration.
type PageFetchConfig struct {
	// TimeoutMs is the fetch timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxBodyBytes caps the downloaded body size (default: 2 MiB)
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" json:"max_body_bytes"`
}

// IngestConfig holds corpus ingestion configuration.
type IngestConfig struct {
	// ChunkSize is the target chunk length in characters (default: 500)
	ChunkSize int `mapstructure:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is how many characters adjacent chunks share (default: 20)
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`
	// BatchSize is how many chunks each upsert batch carries (default: 100)
	BatchSize int `mapstructure:"batch_size" json:"batch_size"`
}
