package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

var (
	pgClient      *postgres.Client
	pgMu          sync.RWMutex
	pgErrorLogged bool
)

// SetPostgresClient sets the Postgres client for journal persistence.
func SetPostgresClient(client *postgres.Client) {
	pgMu.Lock()
	pgClient = client
	pgErrorLogged = false
	pgMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event in the ring buffer, fans it out to subscribers and,
// when a client is set, appends it to Postgres. A "session_id" field is also
// stored in its own column.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	pgMu.RLock()
	client := pgClient
	errorLogged := pgErrorLogged
	pgMu.RUnlock()

	if client != nil {
		sessionID, _ := fields["session_id"].(string)
		if err := client.Append(ts, level, name, msg, fields, sessionID); err != nil && !errorLogged {
			// Add directly to the buffer, NOT Emit(), to avoid recursion if Postgres keeps failing.
			pgMu.Lock()
			if !pgErrorLogged {
				pgErrorLogged = true
				pgMu.Unlock()
				errEvent := Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "postgres append failed",
					Fields: map[string]interface{}{
						"error": err.Error(),
					},
				}
				buffer.Add(errEvent)
				broadcast(errEvent)
			} else {
				pgMu.Unlock()
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

// Snapshot returns the in-memory journal, oldest first.
func Snapshot() []Event {
	return buffer.Snapshot()
}

// SessionEvents returns the in-memory journal entries tagged with sessionID.
func SessionEvents(sessionID string) []Event {
	return buffer.Filter(func(e Event) bool {
		id, _ := e.Fields["session_id"].(string)
		return id == sessionID
	})
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
