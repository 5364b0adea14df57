package story

import (
	"fmt"
	"sort"
	"strings"
)

// Validate performs a full structural check of def, stricter than New:
// the start node must exist, every redirect must target a known node, every
// operator must be recognized and every choice must have a redirect.
// All problems are reported together, in node order, wrapped in ErrInvalidDefinition.
func Validate(def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}

	var errs []string

	if def.Start == "" {
		errs = append(errs, "start is required")
	} else if _, ok := def.Nodes[def.Start]; !ok {
		errs = append(errs, fmt.Sprintf("start node %q not found", def.Start))
	}
	if len(def.Nodes) == 0 {
		errs = append(errs, "nodes must not be empty")
	}

	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := def.Nodes[id]
		where := fmt.Sprintf("nodes.%s", id)

		errs = append(errs, checkRedirects(def, where+".redirects", node.Redirects)...)
		errs = append(errs, checkSetters(where+".set_conditions", node.SetConditions)...)

		for i, c := range node.Choices {
			cw := fmt.Sprintf("%s.choices[%d]", where, i)
			if len(c.Redirects) == 0 {
				errs = append(errs, cw+": at least one redirect is required")
			}
			errs = append(errs, checkConditions(cw+".conditions", c.Conditions)...)
			errs = append(errs, checkSetters(cw+".set_conditions", c.SetConditions)...)
			errs = append(errs, checkRedirects(def, cw+".redirects", c.Redirects)...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(errs, "; "))
	}
	return nil
}

func checkRedirects(def *Definition, where string, redirects []Redirect) []string {
	var errs []string
	for i, r := range redirects {
		rw := fmt.Sprintf("%s[%d]", where, i)
		if _, ok := def.Nodes[r.NodeName]; !ok {
			errs = append(errs, fmt.Sprintf("%s: unknown node %q", rw, r.NodeName))
		}
		errs = append(errs, checkConditions(rw+".conditions", r.Conditions)...)
	}
	return errs
}

func checkConditions(where string, conds []Condition) []string {
	var errs []string
	for i, c := range conds {
		if !IsConditionOperator(c.Operator) {
			errs = append(errs, fmt.Sprintf("%s[%d]: invalid operator %q", where, i, c.Operator))
		}
	}
	return errs
}

func checkSetters(where string, setters []VariableSetter) []string {
	var errs []string
	for i, s := range setters {
		if !IsSetterOperator(s.Operator) {
			errs = append(errs, fmt.Sprintf("%s[%d]: invalid operator %q", where, i, s.Operator))
		}
	}
	return errs
}
