package story

import (
	"fmt"

	"github.com/AaronLay10/StoryEngine/internal/storage/postgres"
)

// DefaultRestoreLimit is the default number of journal rows to load for a replay.
const DefaultRestoreLimit = 1000

// Step is one journaled move of a playthrough: either the choice at index
// Choice among the offered choices, or, when Redirect is set, following the
// advisory redirect of a node.
type Step struct {
	Choice   int
	Redirect bool
}

// ChoiceSteps returns one choice step per index.
func ChoiceSteps(indices ...int) []Step {
	steps := make([]Step, 0, len(indices))
	for _, idx := range indices {
		steps = append(steps, Step{Choice: idx})
	}
	return steps
}

// RestoreSteps loads the journal of one session from Postgres and returns the
// steps of its latest playthrough, oldest first, along with the number of rows read.
// Returns nil if client is nil or nothing was journaled.
func RestoreSteps(client *postgres.Client, sessionID string, limit int) ([]Step, int, error) {
	if client == nil {
		return nil, 0, nil
	}

	if limit <= 0 {
		limit = DefaultRestoreLimit
	}

	rows, err := client.QuerySession(sessionID, limit)
	if err != nil {
		return nil, 0, err
	}

	if len(rows) == 0 {
		return nil, 0, nil
	}

	// Reverse to chronological order (QuerySession returns DESC)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	steps, err := StepsFromRows(rows)
	if err != nil {
		return nil, len(rows), fmt.Errorf("session %q (%d rows, limit %d): %w", sessionID, len(rows), limit, err)
	}
	return steps, len(rows), nil
}

// StepsFromRows extracts the steps of the latest playthrough from chronological
// journal rows. A story.started row begins a new playthrough and discards
// earlier steps. Rows that show progress without a preceding story.started,
// as when the query window cut off the start of the session, return
// ErrIncompleteJournal.
func StepsFromRows(rows []postgres.EventRow) ([]Step, error) {
	var steps []Step
	started := false
	orphaned := false

	for _, row := range rows {
		switch row.Event {
		case "story.started":
			started = true
			steps = steps[:0]

		case "choice.made":
			idx, ok := choiceIndexField(row.Fields["choice_index"])
			if !ok || idx < 0 {
				continue
			}
			steps = append(steps, Step{Choice: idx})
			orphaned = orphaned || !started

		case "redirect.followed":
			steps = append(steps, Step{Redirect: true})
			orphaned = orphaned || !started

		case "node.entered":
			orphaned = orphaned || !started
		}
	}

	if !started && orphaned {
		return nil, ErrIncompleteJournal
	}
	return steps, nil
}

// choiceIndexField reads choice_index as journaled in memory (int) or after
// the JSONB round trip (float64).
func choiceIndexField(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Replay resets e, starts it and runs each step in turn.
// Without random setters the emitted payloads match the original playthrough.
func Replay(e *Engine, steps []Step) error {
	e.Reset()
	if err := e.Start(); err != nil {
		return fmt.Errorf("replay start: %w", err)
	}
	for i, step := range steps {
		var err error
		if step.Redirect {
			err = e.FollowRedirect()
		} else {
			err = e.Choose(step.Choice)
		}
		if err != nil {
			return fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	return nil
}
