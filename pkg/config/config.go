// Package config loads the screenshot-ai application configuration from a
// YAML file. The config covers backend endpoints and models, the browser
// viewport, and capture restrictions; per-user mutable state (API key,
// selected model, analysis state) lives in the settings store instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file is absent or fields are unset.
const (
	DefaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultLMStudioBaseURL = "http://127.0.0.1:1234/v1"
	DefaultLMStudioModel   = "qwen-vl-4b"
	DefaultViewportWidth   = 1280
	DefaultViewportHeight  = 720
)

// BackendConfig configures one analysis backend endpoint.
type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ViewportConfig is the logical browser viewport used for capture.
type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// CaptureConfig restricts where and how region capture runs.
type CaptureConfig struct {
	// AllowedURLs is a list of glob patterns; empty allows capture on any
	// page.
	AllowedURLs []string `yaml:"allowed_urls"`
	Headless    bool     `yaml:"headless"`
	StartURL    string   `yaml:"start_url"`
}

// Config is the full application configuration.
type Config struct {
	Gemini   BackendConfig  `yaml:"gemini"`
	LMStudio BackendConfig  `yaml:"lmstudio"`
	Viewport ViewportConfig `yaml:"viewport"`
	Capture  CaptureConfig  `yaml:"capture"`
}

// Default returns a config populated with all defaults.
func Default() *Config {
	return &Config{
		Gemini:   BackendConfig{BaseURL: DefaultGeminiBaseURL, Model: DefaultGeminiModel},
		LMStudio: BackendConfig{BaseURL: DefaultLMStudioBaseURL, Model: DefaultLMStudioModel},
		Viewport: ViewportConfig{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
	}
}

// DefaultPath returns ~/.screenshot-ai/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".screenshot-ai", "config.yaml"), nil
}

// Load reads the config at path, filling unset fields with defaults. A
// missing file yields the defaults without error; a malformed file is an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = DefaultGeminiBaseURL
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultGeminiModel
	}
	if c.LMStudio.BaseURL == "" {
		c.LMStudio.BaseURL = DefaultLMStudioBaseURL
	}
	if c.LMStudio.Model == "" {
		c.LMStudio.Model = DefaultLMStudioModel
	}
	if c.Viewport.Width <= 0 {
		c.Viewport.Width = DefaultViewportWidth
	}
	if c.Viewport.Height <= 0 {
		c.Viewport.Height = DefaultViewportHeight
	}
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}
