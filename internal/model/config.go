package model

import "time"

// Config is the complete tenscan configuration
type Config struct {
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Pipeline     PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Validation   ValidationConfig  `yaml:"validation" mapstructure:"validation"`
	Schedule     ScheduleConfig    `yaml:"schedule" mapstructure:"schedule"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
	Sources      []SourceConfig    `yaml:"sources" mapstructure:"sources"`
}

// HTTPConfig controls the article fetcher
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries    int           `yaml:"max_retries" mapstructure:"max_retries"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RateLimitConfig controls per-domain request pacing
type RateLimitConfig struct {
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size" mapstructure:"burst_size"`
	MinDelay          time.Duration `yaml:"min_delay" mapstructure:"min_delay"` // randomized delay between article requests
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// ConcurrencyConfig controls the parser worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig controls the classification cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, file, redis
	Path      string        `yaml:"path" mapstructure:"path"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// LLMConfig controls the AI classification collaborator
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig controls persistence and the duplicate-check window
type StoreConfig struct {
	Driver         string        `yaml:"driver" mapstructure:"driver"` // memory, postgres
	DSN            string        `yaml:"dsn,omitempty" mapstructure:"dsn"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	DedupWindow    time.Duration `yaml:"dedup_window" mapstructure:"dedup_window"`
	DedupLimit     int           `yaml:"dedup_limit" mapstructure:"dedup_limit"`
	TitleThreshold float64       `yaml:"title_threshold" mapstructure:"title_threshold"`
}

// PipelineConfig controls acceptance policy
type PipelineConfig struct {
	MinConfidence      float64  `yaml:"min_confidence" mapstructure:"min_confidence"`
	AllowedCategories  []string `yaml:"allowed_categories" mapstructure:"allowed_categories"`
	BlendMinConfidence float64  `yaml:"blend_min_confidence" mapstructure:"blend_min_confidence"`
}

// ValidationConfig controls the content validator
type ValidationConfig struct {
	MinTitleLength   int      `yaml:"min_title_length" mapstructure:"min_title_length"`
	MinContentLength int      `yaml:"min_content_length" mapstructure:"min_content_length"`
	MaxEmoji         int      `yaml:"max_emoji" mapstructure:"max_emoji"`
	MaxUpperRatio    float64  `yaml:"max_upper_ratio" mapstructure:"max_upper_ratio"`
	MaxExclaimRatio  float64  `yaml:"max_exclaim_ratio" mapstructure:"max_exclaim_ratio"`
	AllowedDomains   []string `yaml:"allowed_domains" mapstructure:"allowed_domains"`
	ExtraBanned      []string `yaml:"extra_banned_phrases,omitempty" mapstructure:"extra_banned_phrases"`
}

// ScheduleConfig controls the periodic runner
type ScheduleConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // console, json
}

// SourceType selects the parser implementation for a source
type SourceType string

const (
	SourceRSS  SourceType = "rss"
	SourceHTML SourceType = "html"
)

// SourceConfig describes one news source
type SourceConfig struct {
	Name              string     `yaml:"name" mapstructure:"name"`
	Type              SourceType `yaml:"type" mapstructure:"type"`
	URL               string     `yaml:"url" mapstructure:"url"`
	Enabled           bool       `yaml:"enabled" mapstructure:"enabled"`
	MaxArticles       int        `yaml:"max_articles" mapstructure:"max_articles"`
	FullText          bool       `yaml:"full_text" mapstructure:"full_text"` // rss: fetch the linked page for the body
	LinkSelector      string     `yaml:"link_selector,omitempty" mapstructure:"link_selector"`
	LinkPattern       string     `yaml:"link_pattern,omitempty" mapstructure:"link_pattern"`
	TitleSelector     string     `yaml:"title_selector,omitempty" mapstructure:"title_selector"`
	ContentSelector   string     `yaml:"content_selector,omitempty" mapstructure:"content_selector"`
	RubricSelector    string     `yaml:"rubric_selector,omitempty" mapstructure:"rubric_selector"`
	AllowedCategories []string   `yaml:"allowed_categories,omitempty" mapstructure:"allowed_categories"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       20 * time.Second,
			UserAgent:     "tenscan/0.3 (+https://github.com/ppiankov/tenscan)",
			MaxBodyBytes:  2_000_000,
			MaxRetries:    3,
			RespectRobots: true,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 1.0,
			BurstSize:         2,
			MinDelay:          500 * time.Millisecond,
			MaxDelay:          2 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Backend:   "file",
			Path:      "~/.tenscan/classify-cache.json",
			TTL:       30 * 24 * time.Hour,
			MemoryTTL: time.Hour,
		},
		LLM: LLMConfig{
			Timeout:   20,
			MaxTokens: 400,
		},
		Store: StoreConfig{
			Driver:         "memory",
			Timeout:        10 * time.Second,
			DedupWindow:    7 * 24 * time.Hour,
			DedupLimit:     1000,
			TitleThreshold: 0.85,
		},
		Pipeline: PipelineConfig{
			MinConfidence: 0.3,
		},
		Validation: ValidationConfig{
			MinTitleLength:   10,
			MinContentLength: 100,
			MaxEmoji:         3,
			MaxUpperRatio:    0.3,
			MaxExclaimRatio:  0.05,
			AllowedDomains: []string{
				"ria.ru", "tass.ru", "interfax.ru", "kommersant.ru", "rbc.ru",
				"gov.ru", "kremlin.ru", "mil.ru", "reuters.com", "apnews.com",
			},
		},
		Schedule: ScheduleConfig{
			Cron: "0 */2 * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// EnabledSources returns the sources with Enabled set
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}
