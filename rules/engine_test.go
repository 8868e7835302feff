package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/rules"
)

func alwaysTrue() rules.Condition {
	return rules.Condition{Leaf: &rules.LeafCondition{Fact: "market", Operator: rules.OpEqual, Value: "HK"}}
}

func TestEngine_Run_SortsByPriorityThenName(t *testing.T) {
	// GIVEN three rules with mixed priorities and a tie
	// WHEN run against a matching event
	// THEN matches come back ascending by priority, ties broken by name

	ruleSet := []rules.Rule{
		{Name: "z-rule", Priority: 10, Active: true, Conditions: alwaysTrue(), Event: rules.RuleEvent{Type: "A"}},
		{Name: "a-rule", Priority: 10, Active: true, Conditions: alwaysTrue(), Event: rules.RuleEvent{Type: "B"}},
		{Name: "early-rule", Priority: 1, Active: true, Conditions: alwaysTrue(), Event: rules.RuleEvent{Type: "C"}},
	}

	engine := rules.NewEngine(ruleSet)
	bindings := bindFor(events.Input{Market: "HK"})

	matched, ruleErrors := engine.Run(context.Background(), "HK", "", "", bindings)

	require.Empty(t, ruleErrors)
	require.Len(t, matched, 3)
	assert.Equal(t, "early-rule", matched[0].RuleName)
	assert.Equal(t, "a-rule", matched[1].RuleName)
	assert.Equal(t, "z-rule", matched[2].RuleName)
}

func TestEngine_Run_SkipsInactiveAndOutOfScopeRules(t *testing.T) {
	ruleSet := []rules.Rule{
		{Name: "inactive", Priority: 1, Active: false, Conditions: alwaysTrue(), Event: rules.RuleEvent{Type: "A"}},
		{Name: "wrong-market", Priority: 1, Active: true, Conditions: alwaysTrue(), Markets: []string{"JP"}, Event: rules.RuleEvent{Type: "B"}},
		{Name: "in-scope", Priority: 1, Active: true, Conditions: alwaysTrue(), Markets: []string{"HK"}, Event: rules.RuleEvent{Type: "C"}},
	}

	engine := rules.NewEngine(ruleSet)
	bindings := bindFor(events.Input{Market: "HK"})

	matched, _ := engine.Run(context.Background(), "HK", "", "", bindings)

	require.Len(t, matched, 1)
	assert.Equal(t, "in-scope", matched[0].RuleName)
}

func TestEngine_Run_MalformedLeafYieldsSoftErrorNotAbort(t *testing.T) {
	// GIVEN one rule with an unknown fact and one healthy rule
	// WHEN run
	// THEN the malformed rule is skipped with an error entry, the other still matches

	ruleSet := []rules.Rule{
		{Name: "broken", Priority: 1, Active: true, Event: rules.RuleEvent{Type: "A"},
			Conditions: rules.Condition{Leaf: &rules.LeafCondition{Fact: "nope", Operator: rules.OpEqual, Value: "x"}}},
		{Name: "healthy", Priority: 2, Active: true, Conditions: alwaysTrue(), Event: rules.RuleEvent{Type: "B"}},
	}

	engine := rules.NewEngine(ruleSet)
	bindings := bindFor(events.Input{Market: "HK"})

	matched, ruleErrors := engine.Run(context.Background(), "HK", "", "", bindings)

	require.Len(t, matched, 1)
	assert.Equal(t, "healthy", matched[0].RuleName)
	require.Len(t, ruleErrors, 1)
	assert.Equal(t, "broken", ruleErrors[0].RuleName)
}
