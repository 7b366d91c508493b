package strategy

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kindredloop/kindred/internal/logging"
)

//go:embed strategy.yaml
var defaultConfigYAML []byte

// EmotionTiers holds keyword lists per intensity.
type EmotionTiers struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
	Low    []string `yaml:"low"`
}

// EmotionConfig is the emotion lexicon.
type EmotionConfig struct {
	Negative EmotionTiers `yaml:"negative"`
	Positive EmotionTiers `yaml:"positive"`
}

// TypeConfig is the conversation-type lexicon.
type TypeConfig struct {
	EmotionalVent      []string `yaml:"emotional_vent"`
	OpinionDiscussion  []string `yaml:"opinion_discussion"`
	InfoRequest        []string `yaml:"info_request"`
	DecisionConsulting []string `yaml:"decision_consulting"`
}

// EngagementConfig tunes the engagement heuristic.
type EngagementConfig struct {
	HighAvgChars int `yaml:"high_avg_chars"`
	LowAvgChars  int `yaml:"low_avg_chars"`
	Window       int `yaml:"window"`
}

// Config is the full strategy lexicon configuration.
type Config struct {
	Emotion           EmotionConfig    `yaml:"emotion"`
	ConversationTypes TypeConfig       `yaml:"conversation_types"`
	Engagement        EngagementConfig `yaml:"engagement"`
}

// Loader holds the active config and optionally hot-reloads it from a file.
type Loader struct {
	mu      sync.RWMutex
	cfg     *Config
	watcher *fsnotify.Watcher
	log     logging.Logger
}

// NewLoader parses the embedded default configuration.
func NewLoader() *Loader {
	cfg := &Config{}
	// The embedded default must always parse.
	if err := yaml.Unmarshal(defaultConfigYAML, cfg); err != nil {
		panic(fmt.Sprintf("embedded strategy config invalid: %v", err))
	}
	return &Loader{cfg: cfg, log: logging.For("strategy")}
}

// Config returns the active configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// LoadFile replaces the active config from a YAML file.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read strategy config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse strategy config: %w", err)
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	l.log.Infof("strategy config loaded from %s", path)
	return nil
}

// Watch loads the file and reloads it whenever it changes. A reload that
// fails to parse keeps the previous config.
func (l *Loader) Watch(path string) error {
	if err := l.LoadFile(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	l.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := l.LoadFile(path); err != nil {
					l.log.Errorf("strategy config reload failed, keeping previous: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.log.Errorf("strategy config watcher: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (l *Loader) Close() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
