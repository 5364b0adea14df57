package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// PlayerConfig is the player.yaml schema.
// Fields tagged with env can be overridden from the environment.
type PlayerConfig struct {
	Version int           `yaml:"version"`
	Story   StoryConfig   `yaml:"story"`
	Session SessionConfig `yaml:"session"`
	Journal JournalConfig `yaml:"journal"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
}

type StoryConfig struct {
	ID   string `yaml:"id" env:"STORY_ID"`
	Path string `yaml:"path" env:"STORY_PATH"`
}

type SessionConfig struct {
	ID     string `yaml:"id" env:"STORY_SESSION_ID"`
	Resume bool   `yaml:"resume"`
}

type JournalConfig struct {
	Postgres     bool `yaml:"postgres" env:"STORY_JOURNAL_POSTGRES"`
	RestoreLimit int  `yaml:"restore_limit"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled" env:"STORY_MQTT_ENABLED"`
	URL         string `yaml:"url" env:"MQTT_URL"`
	Username    string `yaml:"username" env:"MQTT_USERNAME"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type APIConfig struct {
	Port int `yaml:"port" env:"STORY_API_PORT"`
}

type LogConfig struct {
	Level       string `yaml:"level" env:"STORY_LOG_LEVEL"`
	Development bool   `yaml:"development"`
}

// BrokerURL returns the configured broker, defaulting to a local one.
func (c MQTTConfig) BrokerURL() string {
	if c.URL == "" {
		return "tcp://localhost:1883"
	}
	return c.URL
}

// Prefix returns the topic prefix, defaulting to storyengine/<story id>.
func (c *PlayerConfig) Prefix() string {
	if c.MQTT.TopicPrefix != "" {
		return c.MQTT.TopicPrefix
	}
	id := c.Story.ID
	if id == "" {
		id = "default"
	}
	return "storyengine/" + id
}

// LoadPlayerConfig reads player.yaml and overlays environment variables.
func LoadPlayerConfig(path string) (*PlayerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PlayerConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported player.yaml version: %d", cfg.Version)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no player.yaml is given.
// Environment overrides are applied.
func Default() (*PlayerConfig, error) {
	cfg := &PlayerConfig{Version: 1}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields of cfg from their env tags. Unset variables leave fields alone.
func ApplyEnv(cfg *PlayerConfig) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
