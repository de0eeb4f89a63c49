// Package config loads dashboard settings from an optional YAML file over
// fixed defaults, with environment overrides for the two endpoints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API  APIConfig  `yaml:"api"`
	Feed FeedConfig `yaml:"feed"`
	UI   UIConfig   `yaml:"ui"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

type FeedConfig struct {
	URL              string `yaml:"url"`
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
	MaxAttempts      int    `yaml:"max_attempts"`
}

type UIConfig struct {
	RefreshMs int `yaml:"refresh_ms"`
}

func Defaults() Config {
	return Config{
		API: APIConfig{BaseURL: "http://localhost:8090"},
		Feed: FeedConfig{
			URL:              "ws://localhost:8090/ws",
			ReconnectDelayMs: 3000,
			MaxAttempts:      5,
		},
		UI: UIConfig{RefreshMs: 250},
	}
}

// Load reads path over Defaults. An empty path returns the defaults; a
// missing file is an error (the caller asked for it explicitly). Environment
// overrides SIMSCOPE_API_URL and SIMSCOPE_WS_URL apply last.
func Load(path string) (Config, error) {
	c := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("%s: %w", path, err)
		}
	}
	if v := os.Getenv("SIMSCOPE_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("SIMSCOPE_WS_URL"); v != "" {
		c.Feed.URL = v
	}
	if c.Feed.ReconnectDelayMs <= 0 {
		c.Feed.ReconnectDelayMs = Defaults().Feed.ReconnectDelayMs
	}
	if c.Feed.MaxAttempts <= 0 {
		c.Feed.MaxAttempts = Defaults().Feed.MaxAttempts
	}
	if c.UI.RefreshMs <= 0 {
		c.UI.RefreshMs = Defaults().UI.RefreshMs
	}
	return c, nil
}

func (f FeedConfig) ReconnectDelay() time.Duration {
	return time.Duration(f.ReconnectDelayMs) * time.Millisecond
}

func (u UIConfig) Refresh() time.Duration {
	return time.Duration(u.RefreshMs) * time.Millisecond
}
