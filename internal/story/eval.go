package story

// CompareScalars applies a condition operator to a current value and a literal.
//
// = and != are strict: values of different kinds are never equal, and a
// missing variable equals nothing (so != against it is always true).
// Ordering operators compare numbers numerically, strings lexically and
// booleans as false < true. Any other pairing, including a missing variable,
// makes every ordering operator false.
func CompareScalars(cur Scalar, op string, val Scalar) (bool, error) {
	switch op {
	case OpEqual:
		return cur.kind != KindNone && cur.Equal(val), nil
	case OpNotEqual:
		return cur.kind == KindNone || !cur.Equal(val), nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		c, ok := order(cur, val)
		if !ok {
			return false, nil
		}
		switch op {
		case OpGreater:
			return c > 0, nil
		case OpLess:
			return c < 0, nil
		case OpGreaterEqual:
			return c >= 0, nil
		default:
			return c <= 0, nil
		}
	default:
		return false, ErrInvalidOperator
	}
}

// order returns -1, 0 or 1, and false when the pair is not ordered.
func order(a, b Scalar) (int, bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindNumber:
		switch {
		case a.num < b.num:
			return -1, true
		case a.num > b.num:
			return 1, true
		case a.num == b.num:
			return 0, true
		}
		// NaN
		return 0, false
	case KindString:
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		}
		return 0, true
	case KindBool:
		ai, bi := boolRank(a.b), boolRank(b.b)
		return ai - bi, true
	}
	return 0, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// checkCondition evaluates one condition against vars.
func checkCondition(vars Variables, c Condition) (bool, error) {
	ok, err := CompareScalars(vars.Get(c.Variable), c.Operator, c.Value)
	if err != nil {
		return false, invalidOperator(c.Variable, c.Operator)
	}
	return ok, nil
}

// checkConditionSet is true iff every condition holds. It stops at the first
// failing condition; an empty set is true.
func checkConditionSet(vars Variables, conds []Condition) (bool, error) {
	for _, c := range conds {
		ok, err := checkCondition(vars, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// validRedirect returns the first redirect whose conditions hold.
func validRedirect(vars Variables, redirects []Redirect) (*Redirect, error) {
	for i := range redirects {
		ok, err := checkConditionSet(vars, redirects[i].Conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			return &redirects[i], nil
		}
	}
	return nil, ErrNoValidRedirect
}

// validChoices filters choices down to those whose conditions hold, keeping
// declaration order. The result is never nil.
func validChoices(vars Variables, choices []Choice) ([]*Choice, error) {
	out := make([]*Choice, 0, len(choices))
	for i := range choices {
		ok, err := checkConditionSet(vars, choices[i].Conditions)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, &choices[i])
		}
	}
	return out, nil
}
