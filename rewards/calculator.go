package rewards

import (
	"fmt"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/loyaltyerrors"
	"github.com/warp/loyalty-engine/rules"
)

// Calculate turns one matched rule event into a BreakdownEntry, looking up
// its formula by event type. An unrecognized type yields a zero-point entry
// plus a CalculationError (SPEC_FULL.md §7); the run continues.
func Calculate(matched rules.Matched, in events.Input) (ledger.BreakdownEntry, *loyaltyerrors.RuleError) {
	fn, ok := formulas[matched.Event.Type]
	if !ok {
		return ledger.BreakdownEntry{
			RuleName:    matched.RuleName,
			Priority:    matched.Priority,
			Type:        matched.Event.Type,
			Category:    categoryFor(matched.Event.Type),
			Points:      0,
			Description: fmt.Sprintf("unrecognized calculation type %q", matched.Event.Type),
			Computation: ledger.Computation{CalculationType: matched.Event.Type, Formula: "n/a", Result: 0},
		}, loyaltyerrors.NewCalculationError(matched.RuleName, fmt.Sprintf("unrecognized calculation type %q", matched.Event.Type))
	}

	points, rendered, inputs := fn(matched.Event.Params, in)
	return ledger.BreakdownEntry{
		RuleName:    matched.RuleName,
		Priority:    matched.Priority,
		Type:        matched.Event.Type,
		Category:    categoryFor(matched.Event.Type),
		Points:      points,
		Description: fmt.Sprintf("%s matched for %s", matched.RuleName, matched.Event.Type),
		Computation: ledger.Computation{
			CalculationType: matched.Event.Type,
			Formula:         rendered,
			Inputs:          inputs,
			Result:          points,
		},
	}, nil
}
