package story

import (
	"math"
	"math/rand/v2"
)

// applySetter mutates vars according to s.
//
//   - "=" assigns Value.
//   - "+=" adds numbers or concatenates strings.
//   - "-=", "*=", "/=" require both sides to be numbers. Division follows
//     IEEE 754, so dividing by zero yields an infinity rather than an error.
//   - "toggle" negates a boolean; an unset variable becomes true.
//   - "random" assigns floor(r * Value) with r uniform in [0, 1).
//
// A missing variable is never treated as zero: compound operators on it fail
// with ErrTypeMismatch.
func applySetter(vars Variables, s VariableSetter, rng *rand.Rand) error {
	cur := vars.Get(s.Variable)

	switch s.Operator {
	case OpAssign:
		vars[s.Variable] = s.Value
		return nil

	case OpAdd:
		if a, ok := cur.Str(); ok {
			if b, ok := s.Value.Str(); ok {
				vars[s.Variable] = Text(a + b)
				return nil
			}
		}
		return arithmetic(vars, s, cur, func(a, b float64) float64 { return a + b })

	case OpSubtract:
		return arithmetic(vars, s, cur, func(a, b float64) float64 { return a - b })

	case OpMultiply:
		return arithmetic(vars, s, cur, func(a, b float64) float64 { return a * b })

	case OpDivide:
		return arithmetic(vars, s, cur, func(a, b float64) float64 { return a / b })

	case OpToggle:
		switch cur.Kind() {
		case KindNone:
			vars[s.Variable] = Bool(true)
		case KindBool:
			b, _ := cur.Truth()
			vars[s.Variable] = Bool(!b)
		default:
			return typeMismatch(s.Variable, s.Operator, cur, Bool(true))
		}
		return nil

	case OpRandom:
		bound, ok := s.Value.Float()
		if !ok || bound <= 0 || math.IsInf(bound, 0) || math.IsNaN(bound) {
			return typeMismatch(s.Variable, s.Operator, cur, s.Value)
		}
		vars[s.Variable] = Number(math.Floor(rng.Float64() * bound))
		return nil

	default:
		return invalidOperator(s.Variable, s.Operator)
	}
}

func arithmetic(vars Variables, s VariableSetter, cur Scalar, fn func(a, b float64) float64) error {
	a, ok := cur.Float()
	if !ok {
		return typeMismatch(s.Variable, s.Operator, cur, s.Value)
	}
	b, ok := s.Value.Float()
	if !ok {
		return typeMismatch(s.Variable, s.Operator, cur, s.Value)
	}
	vars[s.Variable] = Number(fn(a, b))
	return nil
}

// applySetters applies setters in order, stopping at the first failure.
// Callers pass a working copy so a failure leaves live state untouched.
func applySetters(vars Variables, setters []VariableSetter, rng *rand.Rand) error {
	for _, s := range setters {
		if err := applySetter(vars, s, rng); err != nil {
			return err
		}
	}
	return nil
}
