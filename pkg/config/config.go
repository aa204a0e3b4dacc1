// Package config loads vigil's YAML configuration. Missing fields are
// filled from defaults; the VIGIL_HOME environment variable overrides
// the default home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds oracle connection settings. APIKey supports ${VAR}
// environment expansion and falls back to OPENAI_API_KEY when empty.
type LLMConfig struct {
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// QueueConfig holds ingest queue tuning.
type QueueConfig struct {
	BatchSize        int `yaml:"batch_size"`
	FlushIntervalSec int `yaml:"flush_interval_sec"`
	DedupWindowSec   int `yaml:"dedup_window_sec"`
}

// CaptureConfig controls the in-process capture sources.
type CaptureConfig struct {
	Clipboard            bool     `yaml:"clipboard"`
	ClipboardIntervalSec int      `yaml:"clipboard_interval_sec"`
	WatchDirs            []string `yaml:"watch_dirs,omitempty"`
	IgnorePatterns       []string `yaml:"ignore_patterns,omitempty"`
}

// ServiceConfig holds the localhost daemon endpoint.
type ServiceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LifecycleConfig holds janitor tuning.
type LifecycleConfig struct {
	SweepIntervalMin int `yaml:"sweep_interval_min"`
}

// Config is the full vigil configuration.
type Config struct {
	VaultPath string          `yaml:"vault_path"`
	LLM       LLMConfig       `yaml:"llm"`
	Queue     QueueConfig     `yaml:"queue"`
	Capture   CaptureConfig   `yaml:"capture"`
	Service   ServiceConfig   `yaml:"service"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
}

// Home returns the vigil home directory, respecting VIGIL_HOME.
func Home() string {
	if h := os.Getenv("VIGIL_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".vigil")
	}
	return filepath.Join(home, ".vigil")
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		VaultPath: filepath.Join(Home(), "vault"),
		LLM: LLMConfig{
			Model:     "deepseek-chat",
			MaxTokens: 1024,
		},
		Queue: QueueConfig{
			BatchSize:        10,
			FlushIntervalSec: 5,
			DedupWindowSec:   60,
		},
		Capture: CaptureConfig{
			Clipboard:            true,
			ClipboardIntervalSec: 3,
		},
		Service: ServiceConfig{
			Host: "127.0.0.1",
			Port: 8330,
		},
		Lifecycle: LifecycleConfig{
			SweepIntervalMin: 60,
		},
	}
}

// Load reads the config at path, filling missing fields from defaults
// and expanding ${VAR} references in the API key. A missing file is an
// error; use Init to create one.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// LoadOrDefault loads the config at path, falling back to defaults when
// the file does not exist.
func LoadOrDefault(path string) Config {
	cfg, err := Load(path)
	if err != nil {
		cfg = Default()
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg
}

// Init writes the default config to path, creating parent directories.
// It refuses to overwrite an existing file.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// FlushInterval returns the queue flush interval as a duration.
func (c QueueConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSec) * time.Second
}

// DedupWindow returns the dedup window as a duration.
func (c QueueConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSec) * time.Second
}

// ClipboardInterval returns the clipboard poll period as a duration.
func (c CaptureConfig) ClipboardInterval() time.Duration {
	return time.Duration(c.ClipboardIntervalSec) * time.Second
}

// SweepInterval returns the janitor interval as a duration.
func (c LifecycleConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMin) * time.Minute
}

// Addr returns the host:port the daemon listens on.
func (c ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
