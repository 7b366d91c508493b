package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "kindred", cfg.Bot.ID)
	assert.Equal(t, "openai", cfg.Providers.Default)
	assert.Equal(t, ":8472", cfg.Server.Addr)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test-123")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bot:
  id: miso
  name: Miso
  persona: "You are Miso."
  values:
    assertiveness: 7
    stances:
      - topic: remote work
        position: it helps focus
        confidence: 0.8
providers:
  default: openai
  openai:
    api_key: ${TEST_OPENAI_KEY}
    model: gpt-4o-mini
router:
  min_confidence: 0.4
skills:
  - id: weather
    name: Weather
    keywords: [weather, forecast]
    priority: 2
    active: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "miso", cfg.Bot.ID)
	assert.Equal(t, "sk-test-123", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.InDelta(t, 0.4, cfg.Router.MinConfidence, 1e-9)
	require.NotNil(t, cfg.Bot.Values)
	assert.Equal(t, 7, cfg.Bot.Values.Assertiveness)
	require.Len(t, cfg.Skills, 1)
	assert.Equal(t, "weather", cfg.Skills[0].ID)

	// Unset fields keep their defaults.
	assert.Equal(t, ":8472", cfg.Server.Addr)
}
