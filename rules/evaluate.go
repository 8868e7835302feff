package rules

import (
	"context"
	"fmt"
	"regexp"

	"github.com/warp/loyalty-engine/facts"
)

// Evaluate recursively descends a Condition tree against bindings, applying
// the all/any/leaf semantics of SPEC_FULL.md §4.3. A malformed leaf
// (unknown fact or operator) returns an error rather than a boolean; the
// caller (Engine.Run) turns that into a skipped rule plus an errors[] entry.
func Evaluate(ctx context.Context, cond Condition, bindings *facts.Bindings) (bool, error) {
	switch {
	case cond.Leaf != nil:
		return evaluateLeaf(ctx, *cond.Leaf, bindings)
	case cond.All != nil:
		for _, child := range cond.All {
			ok, err := Evaluate(ctx, child, bindings)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case cond.Any != nil:
		for _, child := range cond.Any {
			ok, err := Evaluate(ctx, child, bindings)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("empty condition node")
	}
}

func evaluateLeaf(ctx context.Context, leaf LeafCondition, bindings *facts.Bindings) (bool, error) {
	if !bindings.Has(leaf.Fact) {
		return false, &UnknownFactError{Fact: leaf.Fact}
	}
	if !leaf.Operator.IsKnown() {
		return false, &UnknownOperatorError{Operator: string(leaf.Operator)}
	}

	left, err := bindings.Resolve(ctx, leaf.Fact)
	if err != nil {
		return false, err
	}
	right := facts.FromAny(leaf.Value)

	switch leaf.Operator {
	case OpEqual:
		return left.Equal(right), nil
	case OpNotEqual:
		return !left.Equal(right), nil
	case OpContains:
		return listContains(left, right), nil
	case OpDoesNotContain:
		return !listContains(left, right), nil
	case OpIn:
		return listContains(right, left), nil
	case OpNotIn:
		return !listContains(right, left), nil
	case OpGreaterThan, OpGreaterThanInclusive, OpLessThan, OpLessThanInclusive:
		return compareOrdered(leaf.Operator, left, right)
	case OpRegex:
		return evaluateRegex(left, right)
	default:
		return false, &UnknownOperatorError{Operator: string(leaf.Operator)}
	}
}

// listContains reports whether haystack (a list or scalar coerced to a
// one-element list) contains an element equal to needle.
func listContains(haystack, needle facts.Value) bool {
	items, _ := haystack.AsList()
	for _, item := range items {
		if item.Equal(needle) {
			return true
		}
	}
	return false
}

// compareOrdered handles the four numeric/date ordering operators,
// comparing as dates when both sides parse as dates (a Number never does),
// else falling back to numeric comparison.
func compareOrdered(op Operator, left, right facts.Value) (bool, error) {
	if ld, lok := left.AsDate(); lok {
		if rd, rok := right.AsDate(); rok {
			return orderedResult(op, ld.Compare(rd)), nil
		}
	}
	ln, lok := left.AsNumber()
	rn, rok := right.AsNumber()
	if !lok || !rok {
		return false, fmt.Errorf("operator %q requires comparable operands", op)
	}
	return orderedResult(op, ln.Cmp(rn)), nil
}

func orderedResult(op Operator, cmp int) bool {
	switch op {
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterThanInclusive:
		return cmp >= 0
	case OpLessThan:
		return cmp < 0
	case OpLessThanInclusive:
		return cmp <= 0
	default:
		return false
	}
}

func evaluateRegex(left, right facts.Value) (bool, error) {
	s, ok := left.AsString()
	if !ok {
		return false, fmt.Errorf("regex operator requires a string fact value")
	}
	pattern, ok := right.AsString()
	if !ok {
		return false, fmt.Errorf("regex operator requires a string pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}
