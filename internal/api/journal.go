package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
)

// JournalReader reads persisted journal rows, newest first.
type JournalReader interface {
	Query(limit int) ([]postgres.EventRow, error)
	QuerySession(sessionID string, limit int) ([]postgres.EventRow, error)
}

// SetJournal enables /journal on s, backed by j.
func (s *Server) SetJournal(j JournalReader) {
	s.journal = j
}

// journalHandler serves persisted journal rows of the story.
// ?session=<id> restricts to one session, ?limit=<n> caps the row count.
func (s *Server) journalHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.journal == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "journal not persisted"})
		return
	}

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

	var (
		rows []postgres.EventRow
		err  error
	)
	if session := q.Get("session"); session != "" {
		rows, err = s.journal.QuerySession(session, limit)
	} else {
		rows, err = s.journal.Query(limit)
	}
	if err != nil {
		s.logger.Error("journal query failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "journal query failed"})
		return
	}
	if rows == nil {
		rows = []postgres.EventRow{}
	}
	_ = json.NewEncoder(w).Encode(rows)
}
