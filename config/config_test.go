package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "podforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, DefaultMetricsAddr, cfg.Server.MetricsAddr)
	assert.Equal(t, "groq", cfg.Providers.Default)
	assert.Equal(t, DefaultResearcherURL, cfg.Researcher.URL)
	assert.Equal(t, "English", cfg.Podcast.Language)
	assert.Equal(t, "3", cfg.Podcast.Minutes)
	assert.Equal(t, DefaultProgressTTL, cfg.Podcast.ProgressTTL)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_addr: ":9999"
providers:
  default: openai
  model: gpt-4o
researcher:
  url: http://researcher:4000
redis:
  addr: redis:6379
podcast:
  language: Spanish
  minutes: "5"
  progress_ttl: 10m
images:
  poll_interval: 5s
  max_polls: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, "openai", cfg.Providers.Default)
	assert.Equal(t, "gpt-4o", cfg.Providers.Model)
	assert.Equal(t, "http://researcher:4000", cfg.Researcher.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "Spanish", cfg.Podcast.Language)
	assert.Equal(t, "5", cfg.Podcast.Minutes)
	assert.Equal(t, 10*time.Minute, cfg.Podcast.ProgressTTL)
	assert.Equal(t, 5*time.Second, cfg.Images.PollInterval)
	assert.Equal(t, 50, cfg.Images.MaxPolls)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
researcher:
  url: http://from-file:4000
`)

	t.Setenv("RESEARCHER_URL", "http://from-env:4000")
	t.Setenv("PODCAST_LANGUAGE", "Japanese")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env:4000", cfg.Researcher.URL)
	assert.Equal(t, "Japanese", cfg.Podcast.Language)
}

func TestSecretsFromEnvOnly(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_test123")
	t.Setenv("ELEVENLABS_API_KEY", "xi-test456")
	t.Setenv("LUMAAI_API_KEY", "luma-test789")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gsk_test123", cfg.Secrets.GroqAPIKey)
	assert.Equal(t, "xi-test456", cfg.Secrets.ElevenLabsAPIKey)
	assert.Equal(t, "luma-test789", cfg.Secrets.LumaAPIKey)
	assert.Empty(t, cfg.Secrets.OpenAIAPIKey)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "server: [not a map")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		path := writeConfigFile(t, "providers:\n  default: anthropic\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown default provider "anthropic"`)
	})
}
