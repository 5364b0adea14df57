package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadPlayerConfig(t *testing.T) {
	clearEnv(t, "STORY_ID", "STORY_PATH", "MQTT_URL", "STORY_API_PORT", "STORY_MQTT_ENABLED")

	path := writeConfig(t, `
version: 1
story:
  id: lighthouse
  path: stories/lighthouse.yaml
session:
  id: alice
  resume: true
journal:
  postgres: true
  restore_limit: 500
mqtt:
  enabled: true
  url: tcp://broker:1883
api:
  port: 8090
log:
  level: debug
`)

	cfg, err := LoadPlayerConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Story.ID != "lighthouse" || cfg.Story.Path != "stories/lighthouse.yaml" {
		t.Errorf("unexpected story config: %+v", cfg.Story)
	}
	if cfg.Session.ID != "alice" || !cfg.Session.Resume {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if !cfg.Journal.Postgres || cfg.Journal.RestoreLimit != 500 {
		t.Errorf("unexpected journal config: %+v", cfg.Journal)
	}
	if cfg.MQTT.BrokerURL() != "tcp://broker:1883" {
		t.Errorf("got broker %q", cfg.MQTT.BrokerURL())
	}
	if cfg.Prefix() != "storyengine/lighthouse" {
		t.Errorf("got prefix %q", cfg.Prefix())
	}
	if cfg.API.Port != 8090 {
		t.Errorf("got api port %d", cfg.API.Port)
	}
}

func TestLoadPlayerConfigEnvOverride(t *testing.T) {
	clearEnv(t, "STORY_ID", "STORY_PATH", "STORY_API_PORT", "STORY_MQTT_ENABLED")
	t.Setenv("MQTT_URL", "tcp://override:1883")
	t.Setenv("STORY_PATH", "other.json")

	path := writeConfig(t, "version: 1\nstory:\n  path: story.json\nmqtt:\n  url: tcp://file:1883\n")

	cfg, err := LoadPlayerConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTT.URL != "tcp://override:1883" {
		t.Errorf("expected env to override mqtt url, got %q", cfg.MQTT.URL)
	}
	if cfg.Story.Path != "other.json" {
		t.Errorf("expected env to override story path, got %q", cfg.Story.Path)
	}
}

func TestLoadPlayerConfigRejectsVersion(t *testing.T) {
	path := writeConfig(t, "version: 2\n")
	if _, err := LoadPlayerConfig(path); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t, "STORY_ID", "STORY_PATH", "MQTT_URL", "STORY_API_PORT", "STORY_MQTT_ENABLED")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MQTT.BrokerURL() != "tcp://localhost:1883" {
		t.Errorf("got broker %q", cfg.MQTT.BrokerURL())
	}
	if cfg.Prefix() != "storyengine/default" {
		t.Errorf("got prefix %q", cfg.Prefix())
	}
}
