package postgres

import (
	"os"
	"testing"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PGHOST", "PGPORT", "PGUSER", "PGDATABASE", "PGPASSWORD", "PGSSLMODE"} {
		// Setenv registers restoration of the original value
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "host='127.0.0.1' port='5432' user='storyengine' dbname='storyengine' sslmode='disable'"
	if got := cfg.ConnString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGUSER", "reader")
	t.Setenv("PGDATABASE", "stories")
	t.Setenv("PGPASSWORD", "s3cret")
	t.Setenv("PGSSLMODE", "require")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "host='db.internal' port='6543' user='reader' password='s3cret' dbname='stories' sslmode='require'"
	if got := cfg.ConnString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConnStringQuotesValues(t *testing.T) {
	cfg := Config{
		Host:     "127.0.0.1",
		Port:     "5432",
		User:     "reader",
		Password: `pa ss'w\rd`,
		Database: "stories",
		SSLMode:  "disable",
	}
	want := `host='127.0.0.1' port='5432' user='reader' password='pa ss\'w\\rd' dbname='stories' sslmode='disable'`
	if got := cfg.ConnString(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 200, -5: 200, 50: 50, 20000: 10000}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
