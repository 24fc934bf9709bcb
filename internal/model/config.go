package model

import "time"

// Config is the explicit configuration passed into the pipeline entry point
type Config struct {
	StageA       StageConfig        `yaml:"stage_a" mapstructure:"stage_a"`
	StageB       StageConfig        `yaml:"stage_b" mapstructure:"stage_b"`
	Chunking     ChunkConfig        `yaml:"chunking" mapstructure:"chunking"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Paths        PathsConfig        `yaml:"paths" mapstructure:"paths"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Frameworks   []string           `yaml:"frameworks" mapstructure:"frameworks"`
}

// StageConfig configures one LLM-calling stage
type StageConfig struct {
	Model         string `yaml:"model" mapstructure:"model"`                   // provider/model, e.g. "gemini/gemini-2.5-flash"
	PromptVersion string `yaml:"prompt_version" mapstructure:"prompt_version"` // Bump to invalidate cached results
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`       // Max in-flight calls for this stage
}

// ChunkConfig sizes document chunks in model tokens
type ChunkConfig struct {
	MaxTokens     int `yaml:"max_tokens" mapstructure:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
}

// RetryConfig bounds each LLM call
type RetryConfig struct {
	Attempts int           `yaml:"attempts" mapstructure:"attempts"`
	MinWait  time.Duration `yaml:"min_wait" mapstructure:"min_wait"`
	MaxWait  time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// LLMConfig holds provider transport settings. API keys are never stored here.
type LLMConfig struct {
	Timeout       int    `yaml:"timeout" mapstructure:"timeout"` // seconds, per request
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	OpenAIBaseURL string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
	AnthropicURL  string `yaml:"anthropic_base_url" mapstructure:"anthropic_base_url"`
	OllamaBaseURL string `yaml:"ollama_base_url" mapstructure:"ollama_base_url"`
	HTTPProxy     string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy    string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy       string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// RateLimitingConfig throttles calls per provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// CacheConfig selects and configures the content cache backend
type CacheConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Backend     string `yaml:"backend" mapstructure:"backend"` // layered, disk, memory, sqlite, redis, postgres
	Dir         string `yaml:"dir" mapstructure:"dir"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	RedisAddr   string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix" mapstructure:"redis_prefix"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

// ConcurrencyConfig bounds document-level parallelism
type ConcurrencyConfig struct {
	Workers    int           `yaml:"workers" mapstructure:"workers"`         // Documents processed in parallel
	DocTimeout time.Duration `yaml:"doc_timeout" mapstructure:"doc_timeout"` // 0 disables
}

// PathsConfig locates inputs and outputs
type PathsConfig struct {
	ModelCards string `yaml:"model_cards" mapstructure:"model_cards"`
	Rubric     string `yaml:"rubric" mapstructure:"rubric"`
	Sources    string `yaml:"sources" mapstructure:"sources"` // Optional name -> URL map
	Results    string `yaml:"results" mapstructure:"results"`
	Validation string `yaml:"validation" mapstructure:"validation"` // Human scores and agreement report
}

// OutputConfig controls report sinks
type OutputConfig struct {
	MongoURI        string `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database" mapstructure:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection" mapstructure:"mongo_collection"`
	Verbose         bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		StageA: StageConfig{
			Model:         "gemini/gemini-2.5-flash",
			PromptVersion: "2026-02-01-evidence-v2",
			Concurrency:   50,
		},
		StageB: StageConfig{
			Model:         "anthropic/claude-sonnet-4-5-20250514",
			PromptVersion: "2026-02-01-judge-v1",
			Concurrency:   10,
		},
		Chunking: ChunkConfig{
			MaxTokens:     1200,
			OverlapTokens: 100,
		},
		Retry: RetryConfig{
			Attempts: 3,
			MinWait:  time.Second,
			MaxWait:  20 * time.Second,
		},
		LLM: LLMConfig{
			Timeout:   120,
			MaxTokens: 4096,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 20.0,
			BurstSize:         20,
		},
		Cache: CacheConfig{
			Enabled:     true,
			Backend:     "layered",
			Dir:         ".cache/llm",
			SQLitePath:  ".cache/llm.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "cardaudit:",
		},
		Concurrency: ConcurrencyConfig{
			Workers: 2,
		},
		Paths: PathsConfig{
			ModelCards: "data/model_cards",
			Rubric:     "data/rubrics/requirements.json",
			Sources:    "data/model_cards/sources.json",
			Results:    "results",
			Validation: "validation",
		},
		Output: OutputConfig{
			MongoDatabase:   "cardaudit",
			MongoCollection: "reports",
		},
		Frameworks: []string{FrameworkCoP, FrameworkSTREAM, FrameworkLabSafety},
	}
}
