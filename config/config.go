// Package config loads service configuration from an optional YAML
// file with environment overrides. Secrets are environment-only and
// never read from or written to the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the file nor the environment sets a
// value.
const (
	DefaultListenAddr    = ":8080"
	DefaultMetricsAddr   = ":9090"
	DefaultResearcherURL = "http://localhost:4000"
	DefaultLanguage      = "English"
	DefaultMinutes       = "3"
	DefaultProgressTTL   = 30 * time.Minute
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Researcher ResearcherConfig `yaml:"researcher"`
	Redis      RedisConfig      `yaml:"redis"`
	Podcast    PodcastConfig    `yaml:"podcast"`
	Images     ImagesConfig     `yaml:"images"`

	// Secrets come from the environment only.
	Secrets Secrets `yaml:"-"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProvidersConfig selects the default text-generation provider and
// model. Empty model means the provider's own default.
type ProvidersConfig struct {
	Default string `yaml:"default"`
	Model   string `yaml:"model"`
}

// ResearcherConfig points at the external research service.
type ResearcherConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures the optional Redis-backed progress store.
// An empty address selects the in-memory store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

// PodcastConfig holds generation defaults.
type PodcastConfig struct {
	Language    string        `yaml:"language"`
	Minutes     string        `yaml:"minutes"`
	ProgressTTL time.Duration `yaml:"progress_ttl"`
}

// ImagesConfig bounds the image job polling loop. Zero values keep
// the renderer defaults.
type ImagesConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// Secrets holds provider credentials, sourced from the environment.
type Secrets struct {
	GroqAPIKey       string
	OpenAIAPIKey     string
	ElevenLabsAPIKey string
	LumaAPIKey       string
}

// Load reads the YAML file at path (when non-empty), then applies
// environment overrides and defaults. A missing file at an explicit
// path is an error; path == "" skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Server.ListenAddr, "LISTEN_ADDR")
	setFromEnv(&c.Server.MetricsAddr, "METRICS_ADDR")
	setFromEnv(&c.Providers.Default, "DEFAULT_PROVIDER")
	setFromEnv(&c.Providers.Model, "DEFAULT_MODEL")
	setFromEnv(&c.Researcher.URL, "RESEARCHER_URL")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&c.Podcast.Language, "PODCAST_LANGUAGE")
	setFromEnv(&c.Podcast.Minutes, "PODCAST_MINUTES")

	c.Secrets.GroqAPIKey = os.Getenv("GROQ_API_KEY")
	c.Secrets.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.Secrets.ElevenLabsAPIKey = os.Getenv("ELEVENLABS_API_KEY")
	c.Secrets.LumaAPIKey = os.Getenv("LUMAAI_API_KEY")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.MetricsAddr == "" {
		c.Server.MetricsAddr = DefaultMetricsAddr
	}
	if c.Providers.Default == "" {
		c.Providers.Default = "groq"
	}
	if c.Researcher.URL == "" {
		c.Researcher.URL = DefaultResearcherURL
	}
	if c.Podcast.Language == "" {
		c.Podcast.Language = DefaultLanguage
	}
	if c.Podcast.Minutes == "" {
		c.Podcast.Minutes = DefaultMinutes
	}
	if c.Podcast.ProgressTTL <= 0 {
		c.Podcast.ProgressTTL = DefaultProgressTTL
	}
}

func (c *Config) validate() error {
	switch c.Providers.Default {
	case "groq", "openai":
	default:
		return fmt.Errorf("unknown default provider %q", c.Providers.Default)
	}
	if c.Images.MaxPolls < 0 {
		return fmt.Errorf("images.max_polls must not be negative")
	}
	return nil
}
