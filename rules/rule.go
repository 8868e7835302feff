/*
Package rules implements the declarative condition language and the rule
engine that matches a catalog of Rule records against one event's facts
(SPEC_FULL.md §4.3), grounded on the teacher engine's policy-matching shape
(generic/policy.go) generalized from a flat eligibility predicate to a full
boolean condition tree, and on NSXBet-rule's AST node pattern for the
all/any/leaf sum type.
*/
package rules

import (
	"encoding/json"
	"fmt"
)

// Rule is one catalog entry: a scoped, prioritized condition that, when
// matched, emits a RuleEvent for the reward calculator.
type Rule struct {
	Name         string    `json:"name"`
	Priority     int       `json:"priority"`
	Active       bool      `json:"active"`
	Conditions   Condition `json:"conditions"`
	Event        RuleEvent `json:"event"`
	Markets      []string  `json:"markets,omitempty"`
	Channels     []string  `json:"channels,omitempty"`
	ProductLines []string  `json:"productLines,omitempty"`
}

// RuleEvent is the symbolic outcome a matched rule emits, consumed by the
// reward calculator.
type RuleEvent struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// Matched pairs a rule's identity with the event it emitted, the unit the
// rule engine's Run returns and the reward calculator consumes.
type Matched struct {
	RuleName string
	Priority int
	Event    RuleEvent
}

// rawRule mirrors Rule's JSON shape but leaves Conditions as json.RawMessage
// so UnmarshalJSON can apply Rule's own defaulting (priority 100, active
// true) before parsing the condition tree.
type rawRule struct {
	Name         string          `json:"name"`
	Priority     *int            `json:"priority"`
	Active       *bool           `json:"active"`
	Conditions   json.RawMessage `json:"conditions"`
	Event        RuleEvent       `json:"event"`
	Markets      []string        `json:"markets,omitempty"`
	Channels     []string        `json:"channels,omitempty"`
	ProductLines []string        `json:"productLines,omitempty"`
}

// UnmarshalJSON applies the §6 defaults (priority 100, active true) and
// parses the polymorphic condition tree.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw rawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rule: %w", err)
	}

	cond, err := ParseCondition(raw.Conditions)
	if err != nil {
		return fmt.Errorf("rule %q: %w", raw.Name, err)
	}

	r.Name = raw.Name
	r.Priority = 100
	if raw.Priority != nil {
		r.Priority = *raw.Priority
	}
	r.Active = true
	if raw.Active != nil {
		r.Active = *raw.Active
	}
	r.Conditions = cond
	r.Event = raw.Event
	r.Markets = raw.Markets
	r.Channels = raw.Channels
	r.ProductLines = raw.ProductLines
	return nil
}

// inScope reports whether rule applies to the given market/channel/product
// line, honoring the "absent scoping list means unrestricted" contract.
func (r Rule) inScope(market, channel, productLine string) bool {
	return scopeMatches(r.Markets, market) &&
		scopeMatches(r.Channels, channel) &&
		scopeMatches(r.ProductLines, productLine)
}

func scopeMatches(scope []string, value string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == value {
			return true
		}
	}
	return false
}
