package story

// Definition is the top-level story container loaded from JSON or YAML.
// It is never mutated after construction and may be shared by several engines.
type Definition struct {
	Start     string          `json:"start" yaml:"start"`
	Variables Variables       `json:"variables,omitempty" yaml:"variables,omitempty"`
	Nodes     map[string]Node `json:"nodes" yaml:"nodes"`
}

// Node is a single step of the story.
// Data is opaque to the engine and is handed to subscribers as-is.
type Node struct {
	Data          any              `json:"data,omitempty" yaml:"data,omitempty"`
	Choices       []Choice         `json:"choices,omitempty" yaml:"choices,omitempty"`
	Redirects     []Redirect       `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	SetConditions []VariableSetter `json:"set_conditions,omitempty" yaml:"set_conditions,omitempty"`
}

// Choice is an option presented to the player.
// An empty Conditions list means the choice is always available.
type Choice struct {
	Text          string           `json:"text,omitempty" yaml:"text,omitempty"`
	Conditions    []Condition      `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	SetConditions []VariableSetter `json:"set_conditions,omitempty" yaml:"set_conditions,omitempty"`
	Redirects     []Redirect       `json:"redirects" yaml:"redirects"`
}

// Redirect points at another node, optionally guarded by conditions.
type Redirect struct {
	NodeName   string      `json:"node_name" yaml:"node_name"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Condition compares a variable against a literal.
type Condition struct {
	Variable string `json:"variable" yaml:"variable"`
	Operator string `json:"operator" yaml:"operator"`
	Value    Scalar `json:"value" yaml:"value"`
}

// VariableSetter mutates a single variable.
// Value is ignored for the toggle operator.
type VariableSetter struct {
	Variable string `json:"variable" yaml:"variable"`
	Operator string `json:"operator" yaml:"operator"`
	Value    Scalar `json:"value,omitempty" yaml:"value,omitempty"`
}

// Condition operators.
const (
	OpEqual        = "="
	OpGreater      = ">"
	OpLess         = "<"
	OpGreaterEqual = ">="
	OpLessEqual    = "<="
	OpNotEqual     = "!="
)

// Setter operators.
const (
	OpAssign   = "="
	OpMultiply = "*="
	OpDivide   = "/="
	OpAdd      = "+="
	OpSubtract = "-="
	OpToggle   = "toggle"
	OpRandom   = "random"
)

// IsConditionOperator reports whether op is a known comparison operator.
func IsConditionOperator(op string) bool {
	switch op {
	case OpEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpNotEqual:
		return true
	}
	return false
}

// IsSetterOperator reports whether op is a known mutation operator.
func IsSetterOperator(op string) bool {
	switch op {
	case OpAssign, OpMultiply, OpDivide, OpAdd, OpSubtract, OpToggle, OpRandom:
		return true
	}
	return false
}
