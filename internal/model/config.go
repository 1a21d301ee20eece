package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete runtime configuration
type Config struct {
	Catalog     CatalogConfig     `mapstructure:"catalog" yaml:"catalog"`
	Retrieval   RetrievalConfig   `mapstructure:"retrieval" yaml:"retrieval"`
	Thresholds  Thresholds        `mapstructure:"thresholds" yaml:"thresholds"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Index       IndexConfig       `mapstructure:"index" yaml:"index"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry" yaml:"telemetry"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// CatalogConfig locates the passage catalog and the expansion table
type CatalogConfig struct {
	Path          string `mapstructure:"path" yaml:"path" validate:"required"`
	ExpansionPath string `mapstructure:"expansion_path" yaml:"expansion_path"`
}

// RetrievalConfig controls hybrid retrieval
type RetrievalConfig struct {
	TopK               int           `mapstructure:"top_k" yaml:"top_k" validate:"min=1,max=50"`
	Oversample         int           `mapstructure:"oversample" yaml:"oversample" validate:"min=1,max=20"`
	MinCandidates      int           `mapstructure:"min_candidates" yaml:"min_candidates" validate:"min=1"`
	Lambda             float64       `mapstructure:"lambda" yaml:"lambda" validate:"gte=0,lt=1"` // Vector weight; lexical keeps 1-λ > 0
	ScoreEpsilon       float64       `mapstructure:"score_epsilon" yaml:"score_epsilon" validate:"gt=0,lt=1"`
	MaxPerSource       int           `mapstructure:"max_per_source" yaml:"max_per_source" validate:"min=1"`
	LowConfidenceFloor float64       `mapstructure:"low_confidence_floor" yaml:"low_confidence_floor" validate:"gte=0,lte=1"`
	Lexical            string        `mapstructure:"lexical" yaml:"lexical" validate:"oneof=overlap bm25"`
	SourcePriority     []string      `mapstructure:"source_priority" yaml:"source_priority" validate:"dive,oneof=quran hadith fiqh"`
	ExpansionEnabled   bool          `mapstructure:"expansion_enabled" yaml:"expansion_enabled"`
	EmbedTimeout       time.Duration `mapstructure:"embed_timeout" yaml:"embed_timeout"`
	SearchTimeout      time.Duration `mapstructure:"search_timeout" yaml:"search_timeout"`
}

// Thresholds are the validation gate and retrieval thresholds. The
// orchestrator receives them explicitly so configurations can be compared
// side by side.
type Thresholds struct {
	Grounding           float64 `mapstructure:"grounding" yaml:"grounding" validate:"gte=0,lte=1"`
	Faithfulness        float64 `mapstructure:"faithfulness" yaml:"faithfulness" validate:"gte=0,lte=1"`
	WeakRetrieval       float64 `mapstructure:"weak_retrieval" yaml:"weak_retrieval" validate:"gte=0,lte=1"`
	Confidence          float64 `mapstructure:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
	CitationMinCoverage float64 `mapstructure:"citation_min_coverage" yaml:"citation_min_coverage" validate:"gte=0,lte=1"`
	ClaimSupport        float64 `mapstructure:"claim_support" yaml:"claim_support" validate:"gt=0,lte=1"`
}

// EmbeddingConfig selects the embedding provider
type EmbeddingConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider" validate:"oneof=hash openai ollama"`
	Model             string        `mapstructure:"model" yaml:"model"`
	Dimension         int           `mapstructure:"dimension" yaml:"dimension" validate:"min=8,max=8192"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst" yaml:"burst" validate:"gte=0"`
	BatchSize         int           `mapstructure:"batch_size" yaml:"batch_size" validate:"min=1"`
}

// IndexConfig selects the vector index backend
type IndexConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=memory weaviate"`
	URL     string `mapstructure:"url" yaml:"url,omitempty"`
	Class   string `mapstructure:"class" yaml:"class"`
}

// LLMConfig selects the answer drafter
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider" validate:"oneof=template openai ollama"`
	Model       string        `mapstructure:"model" yaml:"model,omitempty"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
}

// CacheConfig controls the embedding cache
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir,omitempty"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// HTTPConfig configures outbound HTTP for the deep-link checker
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=0,lte=10"`
	RespectRobots bool          `mapstructure:"respect_robots" yaml:"respect_robots"`
	HTTPProxy     string        `mapstructure:"http_proxy" yaml:"http_proxy,omitempty"`
	HTTPSProxy    string        `mapstructure:"https_proxy" yaml:"https_proxy,omitempty"`
	NoProxy       string        `mapstructure:"no_proxy" yaml:"no_proxy,omitempty"`
}

// ConcurrencyConfig sizes worker pools and per-host rate limits
type ConcurrencyConfig struct {
	Workers     int     `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`
	EvalWorkers int     `mapstructure:"eval_workers" yaml:"eval_workers" validate:"min=1,max=64"`
	PerHostRPS  float64 `mapstructure:"per_host_rps" yaml:"per_host_rps" validate:"gt=0"`
}

// TelemetryConfig selects the trace exporter
type TelemetryConfig struct {
	TraceExporter string `mapstructure:"trace_exporter" yaml:"trace_exporter" validate:"oneof=none stdout"`
	ServiceName   string `mapstructure:"service_name" yaml:"service_name"`
}

// LogConfig selects the log level and format
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Catalog: CatalogConfig{
			Path:          "data/catalog.yaml",
			ExpansionPath: "data/expansions.yaml",
		},
		Retrieval: RetrievalConfig{
			TopK:               4,
			Oversample:         4,
			MinCandidates:      20,
			Lambda:             0.7,
			ScoreEpsilon:       0.001,
			MaxPerSource:       2,
			LowConfidenceFloor: 0.15,
			Lexical:            "overlap",
			SourcePriority:     []string{"quran", "hadith", "fiqh"},
			ExpansionEnabled:   true,
			EmbedTimeout:       3 * time.Second,
			SearchTimeout:      3 * time.Second,
		},
		Thresholds: DefaultThresholds(),
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-v1",
			Dimension: 384,
			Timeout:   10 * time.Second,
			Burst:     1,
			BatchSize: 32,
		},
		Index: IndexConfig{
			Backend: "memory",
			URL:     "http://localhost:8080",
			Class:   "NurpathPassage",
		},
		LLM: LLMConfig{
			Provider:  "template",
			Timeout:   30 * time.Second,
			MaxTokens: 600,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			RequestTimeout: 45 * time.Second,
		},
		HTTP: HTTPConfig{
			UserAgent:     "nurpath-linkcheck/0.1 (+https://github.com/nurpath/nurpath)",
			Timeout:       15 * time.Second,
			MaxRetries:    2,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers:     8,
			EvalWorkers: 4,
			PerHostRPS:  2,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			ServiceName:   "nurpath",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultThresholds returns the validation thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		Grounding:           0.40,
		Faithfulness:        0.35,
		WeakRetrieval:       0.28,
		Confidence:          0.62,
		CitationMinCoverage: 0.85,
		ClaimSupport:        0.6,
	}
}

var configValidator = validator.New()

// Validate checks field ranges and cross-field rules
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.Model == "" {
		return fmt.Errorf("invalid config: embedding.model is required for provider openai")
	}
	if c.Index.Backend == "weaviate" && (c.Index.URL == "" || c.Index.Class == "") {
		return fmt.Errorf("invalid config: index.url and index.class are required for weaviate")
	}
	seen := make(map[string]bool)
	for _, st := range c.Retrieval.SourcePriority {
		if seen[st] {
			return fmt.Errorf("invalid config: duplicate source type %q in retrieval.source_priority", st)
		}
		seen[st] = true
	}
	return nil
}

// SourcePriorityOrder returns the configured tie-break order, completed with any
// source types the configuration omits
func (r RetrievalConfig) SourcePriorityOrder() []SourceType {
	order := make([]SourceType, 0, len(DefaultSourcePriority))
	seen := make(map[SourceType]bool)
	for _, s := range r.SourcePriority {
		st := SourceType(s)
		if st.Valid() && !seen[st] {
			order = append(order, st)
			seen[st] = true
		}
	}
	for _, st := range DefaultSourcePriority {
		if !seen[st] {
			order = append(order, st)
		}
	}
	return order
}
