package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
)

type fakeJournal struct {
	rows        []postgres.EventRow
	err         error
	lastSession string
	lastLimit   int
}

func (f *fakeJournal) Query(limit int) ([]postgres.EventRow, error) {
	f.lastSession = ""
	f.lastLimit = limit
	return f.rows, f.err
}

func (f *fakeJournal) QuerySession(sessionID string, limit int) ([]postgres.EventRow, error) {
	f.lastSession = sessionID
	f.lastLimit = limit
	return f.rows, f.err
}

func getJournal(t *testing.T, s *Server, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/journal"+query, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestJournalEndpointDisabled(t *testing.T) {
	w := getJournal(t, NewServer(nil, nil), "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestJournalEndpointSession(t *testing.T) {
	j := &fakeJournal{rows: []postgres.EventRow{{EventID: 2, Event: "choice.made"}, {EventID: 1, Event: "node.entered"}}}
	s := NewServer(nil, nil)
	s.SetJournal(j)

	w := getJournal(t, s, "?session=s1&limit=5")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if j.lastSession != "s1" || j.lastLimit != 5 {
		t.Errorf("unexpected query session=%q limit=%d", j.lastSession, j.lastLimit)
	}

	var rows []postgres.EventRow
	if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rows) != 2 || rows[0].Event != "choice.made" {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestJournalEndpointStory(t *testing.T) {
	j := &fakeJournal{}
	s := NewServer(nil, nil)
	s.SetJournal(j)

	w := getJournal(t, s, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if j.lastSession != "" || j.lastLimit != 0 {
		t.Errorf("unexpected query session=%q limit=%d", j.lastSession, j.lastLimit)
	}
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("expected empty list, got %q", body)
	}
}

func TestJournalEndpointErrors(t *testing.T) {
	s := NewServer(nil, nil)
	s.SetJournal(&fakeJournal{err: errors.New("connection refused")})

	if w := getJournal(t, s, ""); w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if w := getJournal(t, s, "?limit=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
