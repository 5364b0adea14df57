package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestResolveSecret_EnvOnly(t *testing.T) {
	t.Setenv("TEST_SECRET_ENV_ONLY", "env-value")

	value, err := ResolveSecret("TEST_SECRET_ENV_ONLY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "env-value" {
		t.Errorf("got %q, want %q", value, "env-value")
	}
}

func TestResolveSecret_FileWinsOverEnv(t *testing.T) {
	t.Setenv("TEST_SECRET_FILE_WINS", "env-value")
	t.Setenv("TEST_SECRET_FILE_WINS_FILE", writeSecret(t, "  file-value \n\n"))

	value, err := ResolveSecret("TEST_SECRET_FILE_WINS")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "file-value" {
		t.Errorf("got %q, want %q (file should win, whitespace trimmed)", value, "file-value")
	}
}

func TestResolveSecret_NeitherSet(t *testing.T) {
	value, err := ResolveSecret("TEST_SECRET_NEITHER_SET_XYZ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "" {
		t.Errorf("got %q, want empty string", value)
	}
}

func TestResolveSecret_FileNotFound(t *testing.T) {
	t.Setenv("TEST_SECRET_MISSING_FILE", "/nonexistent/path/to/secret")

	if _, err := ResolveSecret("TEST_SECRET_MISSING"); err == nil {
		t.Error("expected error when file does not exist")
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("TEST_SECRETS_A", "a")
	t.Setenv("TEST_SECRETS_B_FILE", writeSecret(t, "b"))

	got, err := ResolveSecrets("TEST_SECRETS_A", "TEST_SECRETS_B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["TEST_SECRETS_A"] != "a" || got["TEST_SECRETS_B"] != "b" {
		t.Errorf("unexpected secrets: %v", got)
	}

	t.Setenv("TEST_SECRETS_C_FILE", "/nonexistent/secret")
	if _, err := ResolveSecrets("TEST_SECRETS_A", "TEST_SECRETS_C"); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}
