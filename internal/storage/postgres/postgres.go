package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	_ "github.com/lib/pq"
)

// EventRow represents a journal event stored in Postgres.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	StoryID   string                 `json:"story_id"`
	SessionID *string                `json:"session_id,omitempty"`
}

// Config holds connection settings, read from the standard libpq variables.
type Config struct {
	Host     string `env:"PGHOST" envDefault:"127.0.0.1"`
	Port     string `env:"PGPORT" envDefault:"5432"`
	User     string `env:"PGUSER" envDefault:"storyengine"`
	Database string `env:"PGDATABASE" envDefault:"storyengine"`
	Password string `env:"PGPASSWORD"`
	SSLMode  string `env:"PGSSLMODE" envDefault:"disable"`
}

// ConfigFromEnv reads Config from the environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse postgres env: %w", err)
	}
	return cfg, nil
}

// ConnString renders cfg as a lib/pq key=value connection string. Values are
// single-quoted with backslashes and quotes escaped. The password is omitted
// when empty.
func (c Config) ConnString() string {
	parts := []string{
		connParam("host", c.Host),
		connParam("port", c.Port),
		connParam("user", c.User),
	}
	if c.Password != "" {
		parts = append(parts, connParam("password", c.Password))
	}
	parts = append(parts, connParam("dbname", c.Database), connParam("sslmode", c.SSLMode))
	return strings.Join(parts, " ")
}

var connEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func connParam(key, value string) string {
	return key + "='" + connEscaper.Replace(value) + "'"
}

// Client manages the Postgres connection for journal storage.
type Client struct {
	db      *sql.DB
	storyID string
}

// New opens a connection, pings it and ensures the journal table exists.
// Returns an error if connection fails (caller should handle gracefully).
func New(cfg Config, storyID string) (*Client, error) {
	db, err := sql.Open("postgres", cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		storyID: storyID,
	}

	if err := client.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create story_events table: %w", err)
	}

	return client, nil
}

func (c *Client) createTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS story_events (
			event_id   BIGSERIAL PRIMARY KEY,
			ts         TIMESTAMPTZ NOT NULL,
			level      TEXT NOT NULL,
			event      TEXT NOT NULL,
			msg        TEXT,
			fields     JSONB,
			story_id   TEXT NOT NULL,
			session_id TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_story_events_ts ON story_events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_story_events_session ON story_events(story_id, session_id);
	`
	_, err := c.db.Exec(query)
	return err
}

// Append inserts a journal event.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	var fieldsJSON []byte
	var err error
	if fields != nil {
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields: %w", err)
		}
	}

	var msgPtr *string
	if msg != "" {
		msgPtr = &msg
	}

	var sessionPtr *string
	if sessionID != "" {
		sessionPtr = &sessionID
	}

	query := `
		INSERT INTO story_events (ts, level, event, msg, fields, story_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = c.db.Exec(query, ts, level, event, msgPtr, fieldsJSON, c.storyID, sessionPtr)
	return err
}

// Query returns the last N events of the story in descending order by event id.
func (c *Client) Query(limit int) ([]EventRow, error) {
	query := `
		SELECT event_id, ts, level, event, msg, fields, story_id, session_id
		FROM story_events
		WHERE story_id = $1
		ORDER BY event_id DESC
		LIMIT $2
	`
	return c.query(query, c.storyID, clampLimit(limit))
}

// QuerySession returns the last N events of one session in descending order by event id.
func (c *Client) QuerySession(sessionID string, limit int) ([]EventRow, error) {
	query := `
		SELECT event_id, ts, level, event, msg, fields, story_id, session_id
		FROM story_events
		WHERE story_id = $1 AND session_id = $2
		ORDER BY event_id DESC
		LIMIT $3
	`
	return c.query(query, c.storyID, sessionID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 10000 {
		return 10000
	}
	return limit
}

func (c *Client) query(query string, args ...interface{}) ([]EventRow, error) {
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		var fieldsJSON []byte
		var msg, sessionID sql.NullString

		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &fieldsJSON, &e.StoryID, &sessionID); err != nil {
			return nil, err
		}

		if msg.Valid {
			e.Message = &msg.String
		}
		if sessionID.Valid {
			e.SessionID = &sessionID.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
			}
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
