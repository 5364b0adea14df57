package story

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	// ErrInvalidDefinition indicates a malformed story definition.
	ErrInvalidDefinition = errors.New("invalid story definition")

	// ErrUnknownNode indicates a start node or redirect that names a node missing from the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoValidRedirect indicates that no redirect in a list satisfied its conditions.
	ErrNoValidRedirect = errors.New("no valid redirect")

	// ErrInvalidOperator indicates an unrecognized condition or setter operator.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrTypeMismatch indicates an operator applied to a scalar of the wrong kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrChoiceOutOfRange indicates a choice index outside the currently offered choices.
	ErrChoiceOutOfRange = errors.New("choice out of range")

	// ErrIncompleteJournal indicates journal rows that do not reach back to the
	// story.started row of the playthrough they belong to.
	ErrIncompleteJournal = errors.New("incomplete journal")
)

// OperatorError reports an operator that cannot be applied.
// It wraps ErrInvalidOperator or ErrTypeMismatch.
type OperatorError struct {
	Variable string
	Operator string
	Err      error
}

func (e *OperatorError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %q on variable %q", e.Err.Error(), e.Operator, e.Variable)
}

func (e *OperatorError) Unwrap() error { return e.Err }

func invalidOperator(variable, op string) error {
	return &OperatorError{Variable: variable, Operator: op, Err: ErrInvalidOperator}
}

func typeMismatch(variable, op string, cur, val Scalar) error {
	return &OperatorError{
		Variable: variable,
		Operator: op,
		Err:      fmt.Errorf("%w: %s with %s", ErrTypeMismatch, cur.Kind(), val.Kind()),
	}
}
