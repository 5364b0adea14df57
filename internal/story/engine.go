package story

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/AaronLay10/StoryEngine/internal/events"
)

// Payload is emitted to data subscribers each time a node is entered.
//
// Choices is nil when the node declares no choices and a non-nil, possibly
// empty slice otherwise; an empty slice is a dead end. Redirect is the
// advisory target resolved from the node's own redirects, or "" when the
// node has none. It is reported, not followed.
type Payload struct {
	Node     string    `json:"node"`
	Data     any       `json:"data,omitempty"`
	Choices  []*Choice `json:"choices,omitempty"`
	Redirect string    `json:"redirect,omitempty"`
}

// DataListener receives node payloads synchronously, in subscription order.
type DataListener func(Payload)

// SubscriptionID identifies a registered DataListener.
type SubscriptionID uint64

type subscription struct {
	id SubscriptionID
	fn DataListener
}

// Engine walks a story graph for a single playthrough.
// It is not safe for concurrent use; run one engine per playthrough and
// share the Definition between them.
type Engine struct {
	def       *Definition
	initial   Variables
	vars      Variables
	current   string
	choices   []*Choice
	redirect  string
	listeners []subscription
	nextID    SubscriptionID

	rng       *rand.Rand
	logger    *zap.Logger
	sessionID string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for listener failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRand sets the random source used by the random setter.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithSessionID tags every journal event with session_id.
func WithSessionID(id string) Option {
	return func(e *Engine) { e.sessionID = id }
}

// New creates an engine for def and snapshots its variables as the initial state.
func New(def *Definition, opts ...Option) (*Engine, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if def.Start == "" {
		return nil, fmt.Errorf("%w: missing start node", ErrInvalidDefinition)
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalidDefinition)
	}

	e := &Engine{
		def:     def,
		initial: def.Variables.Clone(),
		vars:    def.Variables.Clone(),
		logger:  zap.NewNop(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start enters the definition's start node.
func (e *Engine) Start() error {
	e.journal("info", "story.started", map[string]interface{}{"node_id": e.def.Start})
	return e.NextNode(e.def.Start)
}

// Reset restores variables to the initial state. The current node is unchanged;
// call Start afterwards for a full restart.
func (e *Engine) Reset() {
	e.vars = e.initial.Clone()
	e.journal("info", "story.reset", nil)
}

// NextNode enters nodeID: it emits the node payload to subscribers and then
// applies the node's set_conditions.
//
// Failures before emission (unknown node, bad operator, no valid advisory
// redirect) leave the engine untouched. If set_conditions fail after emission,
// the current node has already changed but variables keep their pre-call values.
func (e *Engine) NextNode(nodeID string) error {
	return e.enter(nodeID, e.vars.Clone(), nil)
}

// MakeChoice applies the choice's set_conditions, resolves its redirects and
// enters the target node. The choice is not checked against the current node.
// On failure before the target is entered, variables are left unchanged.
func (e *Engine) MakeChoice(choice *Choice) error {
	if choice == nil {
		return e.fail(fmt.Errorf("%w: nil choice", ErrChoiceOutOfRange))
	}

	work := e.vars.Clone()
	if err := applySetters(work, choice.SetConditions, e.rng); err != nil {
		return e.fail(err)
	}

	redirect, err := validRedirect(work, choice.Redirects)
	if err != nil {
		return e.fail(fmt.Errorf("choice from %q: %w", e.current, err))
	}

	e.journal("info", "choice.made", map[string]interface{}{
		"node_id":      e.current,
		"choice_index": e.choiceIndex(choice),
		"target":       redirect.NodeName,
	})

	return e.enter(redirect.NodeName, work, choice.SetConditions)
}

// Choose makes the choice at index among the choices offered by the last
// entered node.
func (e *Engine) Choose(index int) error {
	if index < 0 || index >= len(e.choices) {
		return e.fail(fmt.Errorf("%w: %d of %d", ErrChoiceOutOfRange, index, len(e.choices)))
	}
	return e.MakeChoice(e.choices[index])
}

// FollowRedirect enters the advisory redirect reported by the last entered
// node. The move is journaled as redirect.followed so Replay can repeat it.
func (e *Engine) FollowRedirect() error {
	if e.redirect == "" {
		return e.fail(fmt.Errorf("%w: node %q reported no redirect", ErrNoValidRedirect, e.current))
	}

	e.journal("info", "redirect.followed", map[string]interface{}{
		"node_id": e.current,
		"target":  e.redirect,
	})
	return e.NextNode(e.redirect)
}

// ValidRedirect returns the first redirect whose conditions hold against the
// current variables, or ErrNoValidRedirect.
func (e *Engine) ValidRedirect(redirects []Redirect) (*Redirect, error) {
	return validRedirect(e.vars, redirects)
}

// CheckCondition evaluates a single condition against the current variables.
func (e *Engine) CheckCondition(c Condition) (bool, error) {
	return checkCondition(e.vars, c)
}

// CheckConditionSet reports whether every condition holds. An empty set is true.
func (e *Engine) CheckConditionSet(conds []Condition) (bool, error) {
	return checkConditionSet(e.vars, conds)
}

// SetVariable applies one setter.
func (e *Engine) SetVariable(s VariableSetter) error {
	return e.SetVariables([]VariableSetter{s})
}

// SetVariables applies setters in order. Either all of them take effect or,
// on error, none do.
func (e *Engine) SetVariables(setters []VariableSetter) error {
	work := e.vars.Clone()
	if err := applySetters(work, setters, e.rng); err != nil {
		return e.fail(err)
	}
	e.commit(work, setters)
	return nil
}

// SubscribeData registers fn for every node emission.
func (e *Engine) SubscribeData(fn DataListener) SubscriptionID {
	e.nextID++
	e.listeners = append(e.listeners, subscription{id: e.nextID, fn: fn})
	return e.nextID
}

// UnsubscribeData removes a listener. It returns false if id is not registered.
func (e *Engine) UnsubscribeData(id SubscriptionID) bool {
	for i, s := range e.listeners {
		if s.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// CurrentNode returns the id of the last entered node, or "" before Start.
func (e *Engine) CurrentNode() string {
	return e.current
}

// CurrentChoices returns the valid choices offered by the last entered node.
func (e *Engine) CurrentChoices() []*Choice {
	return append([]*Choice(nil), e.choices...)
}

// CurrentRedirect returns the advisory redirect of the last entered node, or "".
func (e *Engine) CurrentRedirect() string {
	return e.redirect
}

// Variables returns a copy of the current variables.
func (e *Engine) Variables() Variables {
	return e.vars.Clone()
}

// LoadVariables replaces the current variables with a copy of vars.
// It is intended for restoring a caller-owned save.
func (e *Engine) LoadVariables(vars Variables) {
	e.vars = vars.Clone()
}

// Definition returns the story graph the engine walks.
func (e *Engine) Definition() *Definition {
	return e.def
}

func (e *Engine) enter(nodeID string, work Variables, applied []VariableSetter) error {
	node, ok := e.def.Nodes[nodeID]
	if !ok {
		return e.fail(fmt.Errorf("%w: %q", ErrUnknownNode, nodeID))
	}

	payload := Payload{Node: nodeID, Data: node.Data}

	if node.Choices != nil {
		choices, err := validChoices(work, node.Choices)
		if err != nil {
			return e.fail(fmt.Errorf("node %q choices: %w", nodeID, err))
		}
		payload.Choices = choices
	}

	if node.Redirects != nil {
		redirect, err := validRedirect(work, node.Redirects)
		if err != nil {
			return e.fail(fmt.Errorf("node %q redirects: %w", nodeID, err))
		}
		payload.Redirect = redirect.NodeName
	}

	e.current = nodeID
	e.choices = payload.Choices
	e.redirect = payload.Redirect
	e.commit(work, applied)

	fields := map[string]interface{}{"node_id": nodeID}
	if payload.Choices != nil {
		fields["choices"] = len(payload.Choices)
	}
	if payload.Redirect != "" {
		fields["redirect"] = payload.Redirect
	}
	e.journal("info", "node.entered", fields)

	e.emit(payload)

	if len(node.SetConditions) == 0 {
		return nil
	}
	after := e.vars.Clone()
	if err := applySetters(after, node.SetConditions, e.rng); err != nil {
		return e.fail(fmt.Errorf("node %q set_conditions: %w", nodeID, err))
	}
	e.commit(after, node.SetConditions)
	return nil
}

func (e *Engine) emit(p Payload) {
	listeners := append([]subscription(nil), e.listeners...)
	for _, s := range listeners {
		e.notify(s, p)
	}
}

// notify isolates a listener so a panic does not stop the remaining
// listeners or the set_conditions that follow emission.
func (e *Engine) notify(s subscription, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("data listener panicked",
				zap.Uint64("subscription", uint64(s.id)),
				zap.String("node", p.Node),
				zap.Any("panic", r),
			)
			e.journal("error", "story.error", map[string]interface{}{
				"node_id": p.Node,
				"error":   fmt.Sprint(r),
			})
		}
	}()
	s.fn(p)
}

func (e *Engine) commit(work Variables, setters []VariableSetter) {
	e.vars = work
	for _, s := range setters {
		e.journal("info", "variable.set", map[string]interface{}{
			"variable": s.Variable,
			"operator": s.Operator,
			"value":    work.Get(s.Variable).Interface(),
		})
	}
}

func (e *Engine) choiceIndex(choice *Choice) int {
	for i, c := range e.choices {
		if c == choice {
			return i
		}
	}
	return -1
}

func (e *Engine) fail(err error) error {
	e.journal("error", "story.error", map[string]interface{}{
		"node_id": e.current,
		"error":   err.Error(),
	})
	return err
}

func (e *Engine) journal(level, name string, fields map[string]interface{}) {
	if e.sessionID != "" {
		if fields == nil {
			fields = make(map[string]interface{})
		}
		fields["session_id"] = e.sessionID
	}
	events.Emit(level, name, "", fields)
}
