package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AaronLay10/StoryEngine/internal/events"
	"github.com/AaronLay10/StoryEngine/internal/story"
	"github.com/AaronLay10/StoryEngine/internal/version"
)

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

// Status is the read-only view of a playthrough served on /status.
type Status struct {
	StoryID   string   `json:"story_id"`
	SessionID string   `json:"session_id,omitempty"`
	Node      string   `json:"node"`
	Choices   []string `json:"choices,omitempty"`
	Redirect  string   `json:"redirect,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

// StatusBoard holds the latest Status. The engine goroutine writes it through
// Observe; HTTP handlers read it concurrently.
type StatusBoard struct {
	mu     sync.RWMutex
	status Status
}

// NewStatusBoard creates a board for one story session.
func NewStatusBoard(storyID, sessionID string) *StatusBoard {
	return &StatusBoard{status: Status{StoryID: storyID, SessionID: sessionID}}
}

// Observe is a story.DataListener that records the entered node.
func (b *StatusBoard) Observe(p story.Payload) {
	choices := make([]string, 0, len(p.Choices))
	for i, c := range p.Choices {
		text := c.Text
		if text == "" {
			text = fmt.Sprintf("choice %d", i+1)
		}
		choices = append(choices, text)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.status.Node = p.Node
	b.status.Choices = choices
	b.status.Redirect = p.Redirect
	b.status.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
}

// Snapshot returns a copy of the current status.
func (b *StatusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.status
	s.Choices = append([]string(nil), b.status.Choices...)
	return s
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "storyplayer",
		Version:   version.Version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// eventsHandler serves the in-memory journal. ?session=<id> keeps one
// session's events, ?limit=<n> keeps the newest n.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	var list []events.Event
	if session := q.Get("session"); session != "" {
		list = events.SessionEvents(session)
		if limit > 0 && limit < len(list) {
			list = list[len(list)-limit:]
		}
	} else {
		list = events.RecentEvents(limit)
	}
	if list == nil {
		list = []events.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func statusHandler(board *StatusBoard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if board == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no active playthrough"})
			return
		}
		_ = json.NewEncoder(w).Encode(board.Snapshot())
	}
}

// Server is the read-only HTTP surface of the player.
type Server struct {
	board   *StatusBoard
	journal JournalReader
	logger  *zap.Logger
}

// NewServer creates a server reporting on board.
func NewServer(board *StatusBoard, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{board: board, logger: logger}
}

// Handler returns the server routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/status", statusHandler(s.board))
	mux.HandleFunc("/journal", s.journalHandler)
	mux.HandleFunc("/ws/events", s.wsEventsHandler)
	return mux
}

// ListenAndServe starts the API server on the given port.
// It blocks until the server exits.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("api listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func (s *Server) Start(port int) {
	go func() {
		if err := s.ListenAndServe(port); err != nil {
			s.logger.Error("api server error", zap.Error(err))
		}
	}()
}
