package story

import (
	"errors"
	"reflect"
	"testing"

	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
)

func TestRestoreStepsNilClient(t *testing.T) {
	steps, n, err := RestoreSteps(nil, "s-1", 0)
	if err != nil || steps != nil || n != 0 {
		t.Errorf("expected nil result for nil client, got %v %d %v", steps, n, err)
	}
}

func TestStepsFromRows(t *testing.T) {
	// choice_index arrives as float64 after the JSONB round trip
	rows := []postgres.EventRow{
		{Event: "system.startup"},
		{Event: "story.started"},
		{Event: "choice.made", Fields: map[string]interface{}{"choice_index": 1.0}},
		{Event: "node.entered"},
		{Event: "story.reset"},
		{Event: "story.started"},
		{Event: "choice.made", Fields: map[string]interface{}{"choice_index": 0.0}},
		{Event: "redirect.followed", Fields: map[string]interface{}{"node_id": "fall", "target": "stairs"}},
		{Event: "choice.made", Fields: map[string]interface{}{"choice_index": -1.0}},
		{Event: "choice.made", Fields: map[string]interface{}{"choice_index": 2}},
		{Event: "choice.made", Fields: map[string]interface{}{}},
	}

	got, err := StepsFromRows(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Step{{Choice: 0}, {Redirect: true}, {Choice: 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestStepsFromRowsWithoutStart(t *testing.T) {
	// The oldest rows of a long session fell outside the query window.
	rows := []postgres.EventRow{
		{Event: "node.entered"},
		{Event: "choice.made", Fields: map[string]interface{}{"choice_index": 1.0}},
		{Event: "node.entered"},
	}
	if _, err := StepsFromRows(rows); !errors.Is(err, ErrIncompleteJournal) {
		t.Fatalf("expected ErrIncompleteJournal, got %v", err)
	}

	// A later restart inside the window is enough to replay the latest playthrough.
	rows = append(rows,
		postgres.EventRow{Event: "story.started"},
		postgres.EventRow{Event: "choice.made", Fields: map[string]interface{}{"choice_index": 0.0}},
	)
	got, err := StepsFromRows(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := ChoiceSteps(0); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Rows without any progress replay as a fresh start.
	got, err = StepsFromRows([]postgres.EventRow{{Event: "system.startup"}})
	if err != nil || len(got) != 0 {
		t.Errorf("expected no steps and no error, got %v %v", got, err)
	}
}

func TestReplayStopsOnBadChoice(t *testing.T) {
	e, _ := newEngine(t, loadLighthouse(t))

	err := Replay(e, ChoiceSteps(0, 3))
	if !errors.Is(err, ErrChoiceOutOfRange) {
		t.Fatalf("expected ErrChoiceOutOfRange, got %v", err)
	}
	if e.CurrentNode() != "beach" {
		t.Errorf("expected replay to stop at beach, got %s", e.CurrentNode())
	}
}

func TestReplayFollowsRedirects(t *testing.T) {
	e, rec := newEngine(t, loadLighthouse(t))

	// Walk to the beach, head back to the tower, then follow its redirect to the end.
	steps := []Step{{Choice: 0}, {Choice: 0}, {Redirect: true}}
	if err := Replay(e, steps); err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if e.CurrentNode() != "end" {
		t.Errorf("expected end, got %s", e.CurrentNode())
	}
	if p := rec.last(t); p.Node != "end" {
		t.Errorf("expected last payload from end, got %s", p.Node)
	}
}
