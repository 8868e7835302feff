/*
engine.go implements Engine.Run, the scan-evaluate-sort pipeline of
SPEC_FULL.md §4.3: filter rules in scope, evaluate each independently, sort
matches by ascending priority then rule name.
*/
package rules

import (
	"context"
	"sort"

	"github.com/warp/loyalty-engine/facts"
	"github.com/warp/loyalty-engine/loyaltyerrors"
)

// Engine evaluates a fixed set of rules against one event's bindings.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine over the given rule set. The catalog layer
// pre-filters rules by market only; eventType narrowing is left to each
// rule's conditions. Engine additionally applies market/channel/productLine
// scoping and the active flag.
func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Run evaluates every active, in-scope rule against bindings, returning
// matches sorted by ascending priority (ties broken by rule name,
// lexicographic) and any per-rule soft failures encountered along the way.
func (e *Engine) Run(ctx context.Context, market, channel, productLine string, bindings *facts.Bindings) ([]Matched, []*loyaltyerrors.RuleError) {
	var matched []Matched
	var ruleErrors []*loyaltyerrors.RuleError

	for _, rule := range e.rules {
		if !rule.Active || !rule.inScope(market, channel, productLine) {
			continue
		}

		ok, err := Evaluate(ctx, rule.Conditions, bindings)
		if err != nil {
			ruleErrors = append(ruleErrors, toRuleError(rule.Name, err))
			continue
		}
		if !ok {
			continue
		}

		matched = append(matched, Matched{
			RuleName: rule.Name,
			Priority: rule.Priority,
			Event:    rule.Event,
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Priority != matched[j].Priority {
			return matched[i].Priority < matched[j].Priority
		}
		return matched[i].RuleName < matched[j].RuleName
	})

	return matched, ruleErrors
}

func toRuleError(ruleName string, err error) *loyaltyerrors.RuleError {
	switch e := err.(type) {
	case *UnknownFactError:
		return loyaltyerrors.NewUnknownFactError(ruleName, e.Fact)
	case *UnknownOperatorError:
		return loyaltyerrors.NewUnknownOperatorError(ruleName, e.Operator)
	default:
		return &loyaltyerrors.RuleError{RuleName: ruleName, Kind: "EvaluationError", Message: err.Error()}
	}
}
