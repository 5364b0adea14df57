package story

import (
	"errors"
	"testing"
)

func TestCompareScalars(t *testing.T) {
	cases := []struct {
		name string
		cur  Scalar
		op   string
		val  Scalar
		want bool
	}{
		{"number equal", Number(3), OpEqual, Number(3), true},
		{"strict kinds", Number(1), OpEqual, Bool(true), false},
		{"string vs number", Text("3"), OpEqual, Number(3), false},
		{"not equal kinds", Text("3"), OpNotEqual, Number(3), true},
		{"bool equal", Bool(true), OpEqual, Bool(true), true},
		{"missing equals nothing", Scalar{}, OpEqual, Scalar{}, false},
		{"missing not equal", Scalar{}, OpNotEqual, Number(0), true},
		{"missing ordered", Scalar{}, OpLess, Number(1), false},
		{"missing ordered ge", Scalar{}, OpGreaterEqual, Number(-1), false},
		{"greater", Number(10), OpGreater, Number(5), true},
		{"less equal", Number(5), OpLessEqual, Number(5), true},
		{"greater equal false", Number(4), OpGreaterEqual, Number(5), false},
		{"strings lexical", Text("apple"), OpLess, Text("banana"), true},
		{"bools ordered", Bool(true), OpGreater, Bool(false), true},
		{"mixed kinds unordered", Text("10"), OpGreater, Number(5), false},
	}

	for _, tc := range cases {
		got, err := CompareScalars(tc.cur, tc.op, tc.val)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: %v %s %v = %v, want %v", tc.name, tc.cur, tc.op, tc.val, got, tc.want)
		}
	}
}

func TestCompareScalarsUnknownOperator(t *testing.T) {
	if _, err := CompareScalars(Number(1), "=>", Number(1)); !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("expected ErrInvalidOperator, got %v", err)
	}
}

func TestConditionSetShortCircuits(t *testing.T) {
	vars := Variables{"x": Number(1)}
	conds := []Condition{
		{Variable: "x", Operator: OpGreater, Value: Number(5)},
		{Variable: "x", Operator: "bogus", Value: Number(5)},
	}

	ok, err := checkConditionSet(vars, conds)
	if err != nil {
		t.Fatalf("evaluation should stop at the first false condition, got %v", err)
	}
	if ok {
		t.Error("expected false")
	}
}
