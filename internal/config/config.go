// Package config loads the service configuration from YAML with environment
// expansion and an optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kindredloop/kindred/internal/agent/contextbuilder"
	"github.com/kindredloop/kindred/internal/agent/memory"
	"github.com/kindredloop/kindred/internal/agent/orchestrator"
	"github.com/kindredloop/kindred/internal/agent/router"
	"github.com/kindredloop/kindred/internal/agent/skills"
	"github.com/kindredloop/kindred/internal/engine"
	"github.com/kindredloop/kindred/internal/types"
)

// ProviderConfig holds credentials and model choice for one completion
// provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"` // Ollama only
}

// ProvidersConfig selects and configures the completion backends.
type ProvidersConfig struct {
	Default   string         `yaml:"default"` // openai, anthropic, gemini, ollama
	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`
	Ollama    ProviderConfig `yaml:"ollama"`
}

// EmbeddingsConfig selects the embedding backend.
type EmbeddingsConfig struct {
	Provider string `yaml:"provider"` // openai, ollama, or empty to disable
	APIKey   string `yaml:"api_key,omitempty"`
	Model    string `yaml:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// BotProfile describes the companion persona.
type BotProfile struct {
	ID       string                 `yaml:"id"`
	Name     string                 `yaml:"name"`
	Persona  string                 `yaml:"persona"`
	Keywords []string               `yaml:"keywords,omitempty"`
	Values   *types.ValueDimensions `yaml:"values,omitempty"`
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StrategyConfig points at an optional lexicon override file.
type StrategyConfig struct {
	ConfigPath string `yaml:"config_path,omitempty"`
	Watch      bool   `yaml:"watch,omitempty"`
}

// Config is the full service configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	Bot        BotProfile            `yaml:"bot"`
	Providers  ProvidersConfig       `yaml:"providers"`
	Embeddings EmbeddingsConfig      `yaml:"embeddings"`
	Router     router.Config         `yaml:"router"`
	Memory     memory.Config         `yaml:"memory"`
	Orch       orchestrator.Config   `yaml:"orchestrator"`
	Context    contextbuilder.Config `yaml:"context"`
	Engine     engine.Config         `yaml:"engine"`
	Strategy   StrategyConfig        `yaml:"strategy"`
	Server     ServerConfig          `yaml:"server"`
	Skills     []skills.Skill        `yaml:"skills,omitempty"`
}

// Default returns a config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Bot: BotProfile{
			ID:      "kindred",
			Name:    "Kindred",
			Persona: "You are Kindred, a warm, attentive companion who remembers what matters to the user.",
		},
		Providers: ProvidersConfig{
			Default: "openai",
			Ollama:  ProviderConfig{BaseURL: "http://localhost:11434"},
		},
		Router: router.DefaultConfig(),
		Server: ServerConfig{Addr: ":8472"},
	}
}

// DefaultDataDir returns the default data directory (~/.kindred).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kindred"
	}
	return filepath.Join(home, ".kindred")
}

// Load reads the config file, expanding ${VAR} references from the
// environment after loading an optional .env next to it. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	// Best effort; a missing .env is fine.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}
	return cfg, nil
}

// DatabasePath returns the sqlite file location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "kindred.db")
}
