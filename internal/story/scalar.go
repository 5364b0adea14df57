package story

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Scalar holds.
type Kind int

const (
	KindNone Kind = iota
	KindNumber
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	default:
		return "none"
	}
}

// Scalar is a story variable value: a number, a boolean or a string.
// The zero Scalar is KindNone and stands for a missing variable or a null literal.
type Scalar struct {
	kind Kind
	num  float64
	b    bool
	s    string
}

// Number returns a numeric scalar.
func Number(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }

// Bool returns a boolean scalar.
func Bool(b bool) Scalar { return Scalar{kind: KindBool, b: b} }

// Text returns a string scalar.
func Text(s string) Scalar { return Scalar{kind: KindString, s: s} }

// Kind returns the variant held by s.
func (s Scalar) Kind() Kind { return s.kind }

// IsZero reports whether s holds no value.
func (s Scalar) IsZero() bool { return s.kind == KindNone }

// Float returns the numeric value and whether s is a number.
func (s Scalar) Float() (float64, bool) { return s.num, s.kind == KindNumber }

// Truth returns the boolean value and whether s is a boolean.
func (s Scalar) Truth() (bool, bool) { return s.b, s.kind == KindBool }

// Str returns the string value and whether s is a string.
func (s Scalar) Str() (string, bool) { return s.s, s.kind == KindString }

// Equal is strict equality: same kind and same value.
func (s Scalar) Equal(o Scalar) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindNumber:
		return s.num == o.num
	case KindBool:
		return s.b == o.b
	case KindString:
		return s.s == o.s
	default:
		return true
	}
}

func (s Scalar) String() string {
	switch s.kind {
	case KindNumber:
		return strconv.FormatFloat(s.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(s.b)
	case KindString:
		return s.s
	default:
		return "<none>"
	}
}

// Interface returns s as a plain Go value (float64, bool, string or nil).
func (s Scalar) Interface() any {
	switch s.kind {
	case KindNumber:
		return s.num
	case KindBool:
		return s.b
	case KindString:
		return s.s
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Scalar{}
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*s = Number(t)
	case bool:
		*s = Bool(t)
	case string:
		*s = Text(t)
	default:
		return fmt.Errorf("scalar must be a number, boolean or string, got %s", string(data))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s Scalar) MarshalYAML() (interface{}, error) {
	return s.Interface(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: scalar must be a number, boolean or string", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*s = Scalar{}
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*s = Number(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*s = Bool(b)
	default:
		*s = Text(node.Value)
	}
	return nil
}

// ScalarOf converts a plain Go value into a Scalar.
// Integer types are widened to float64; unsupported types return an error.
func ScalarOf(v any) (Scalar, error) {
	switch t := v.(type) {
	case nil:
		return Scalar{}, nil
	case Scalar:
		return t, nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case bool:
		return Bool(t), nil
	case string:
		return Text(t), nil
	default:
		return Scalar{}, fmt.Errorf("unsupported scalar type %T: %w", v, ErrTypeMismatch)
	}
}

// Variables maps variable names to their current values.
type Variables map[string]Scalar

// Clone returns an independent copy of v.
// Scalars are values, so a shallow map copy is a deep copy.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, s := range v {
		out[k] = s
	}
	return out
}

// Get returns the value of name, or the zero Scalar when it is not set.
func (v Variables) Get(name string) Scalar {
	return v[name]
}

// Plain returns v as a map of plain Go values, for journaling and JSON output.
func (v Variables) Plain() map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for k, s := range v {
		out[k] = s.Interface()
	}
	return out
}
