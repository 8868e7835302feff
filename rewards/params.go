/*
Package rewards is the reward calculator: a dispatcher keyed on a matched
rule's event type, translating {params, event} into a signed integer
BreakdownEntry (SPEC_FULL.md §4.4), grounded on the teacher engine's
accrual-rate dispatch (generic/accrual.go AccrualCalculator) generalized
from periodic-rate accrual to per-event formula lookup.
*/
package rewards

import (
	"github.com/shopspring/decimal"

	"github.com/warp/loyalty-engine/events"
)

// numParam returns the first present key in params as a decimal, trying
// each key in order and falling back to def if none are present or
// convertible. Mirrors the formula table's "a ∨ b ∨ c ∨ default" notation.
func numParam(params map[string]any, def decimal.Decimal, keys ...string) decimal.Decimal {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if d, ok := toDecimal(v); ok {
				return d
			}
		}
	}
	return def
}

// hasParam reports whether any of keys is present in params.
func hasParam(params map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := params[k]; ok {
			return true
		}
	}
	return false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		d, err := decimal.NewFromString(t)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// transactionAmount resolves attributes.srpAmount ∨ attributes.amount from
// the raw event, the ordering every ORDER_* formula in §4.4 depends on.
func transactionAmount(in events.Input) (decimal.Decimal, bool) {
	if v := in.Attr("srpAmount"); v != nil {
		if d, ok := toDecimal(v); ok {
			return d, true
		}
	}
	if v := in.Attr("amount"); v != nil {
		if d, ok := toDecimal(v); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

// baseRate resolves the market-dependent base rate: JP uses
// conversionRate∨rate, other markets use rate∨standardRate, both
// defaulting as documented per formula.
func baseRate(params map[string]any, market string, jpDefault, otherDefault decimal.Decimal) decimal.Decimal {
	if market == "JP" {
		return numParam(params, jpDefault, "conversionRate", "rate")
	}
	return numParam(params, otherDefault, "rate", "standardRate")
}

func floorInt(d decimal.Decimal) int64 { return d.Floor().IntPart() }
