package rules

// Operator is the fixed set of leaf comparison operators (SPEC_FULL.md §4.3).
type Operator string

const (
	OpEqual                Operator = "equal"
	OpNotEqual             Operator = "notEqual"
	OpContains             Operator = "contains"
	OpDoesNotContain       Operator = "doesNotContain"
	OpIn                   Operator = "in"
	OpNotIn                Operator = "notIn"
	OpGreaterThan          Operator = "greaterThan"
	OpGreaterThanInclusive Operator = "greaterThanInclusive"
	OpLessThan             Operator = "lessThan"
	OpLessThanInclusive    Operator = "lessThanInclusive"
	OpRegex                Operator = "regex"
)

var knownOperators = map[Operator]bool{
	OpEqual: true, OpNotEqual: true, OpContains: true, OpDoesNotContain: true,
	OpIn: true, OpNotIn: true, OpGreaterThan: true, OpGreaterThanInclusive: true,
	OpLessThan: true, OpLessThanInclusive: true, OpRegex: true,
}

// IsKnown reports whether op is one of the eleven supported operators.
func (op Operator) IsKnown() bool { return knownOperators[op] }
