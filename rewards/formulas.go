package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/loyalty-engine/events"
)

// formula computes a BreakdownEntry's points, a human-readable rendering of
// how they were derived, and the subset of params actually consulted.
type formula func(params map[string]any, in events.Input) (points int64, rendered string, inputs map[string]any)

var formulas = map[string]formula{
	"INTERACTION_REGISTRY_POINT":              interactionRegistryPoint,
	"ORDER_BASE_POINT":                        orderBasePoint,
	"ORDER_MULTIPLE_POINT_LIMIT":               orderMultiplePoint,
	"ORDER_MULTIPLE_POINT":                    orderMultiplePoint,
	"FLEXIBLE_CAMPAIGN_BONUS":                 flexibleCampaignBonus,
	"FLEXIBLE_VIP_MULTIPLIER":                 flexibleMultiplierBonus,
	"FLEXIBLE_PRODUCT_MULTIPLIER":             flexibleMultiplierBonus,
	"FIRST_PURCHASE_BIRTH_MONTH_BONUS":        flexibleMultiplierBonus,
	"FLEXIBLE_BASKET_AMOUNT":                  flexibleBasketAmount,
	"FLEXIBLE_COMBO_PRODUCT_MULTIPLIER":        flexibleComboProductMultiplier,
	"INTERACTION_ADJUST_POINT_TIMES_PER_YEAR":  interactionAdjustPointTimesPerYear,
	"CONSULTATION_BONUS":                      consultationBonus,
	"INTERACTION_ADJUST_POINT_BY_MANAGER":      interactionAdjustPointByManager,
	"REDEMPTION_DEDUCTION":                    redemptionDeduction,
}

// categories is the fixed rule-event-type → category mapping (§4.4).
var categories = map[string]string{
	"ORDER_BASE_POINT":                        "BASE_PURCHASE",
	"ORDER_MULTIPLE_POINT_LIMIT":               "MULTIPLIER_BONUS",
	"ORDER_MULTIPLE_POINT":                     "MULTIPLIER_BONUS",
	"FLEXIBLE_CAMPAIGN_BONUS":                  "CAMPAIGN",
	"FLEXIBLE_VIP_MULTIPLIER":                  "VIP_BONUS",
	"FLEXIBLE_PRODUCT_MULTIPLIER":              "PRODUCT_BONUS",
	"FIRST_PURCHASE_BIRTH_MONTH_BONUS":         "BIRTHDAY_BONUS",
	"FLEXIBLE_BASKET_AMOUNT":                   "SPENDING_THRESHOLD",
	"FLEXIBLE_COMBO_PRODUCT_MULTIPLIER":        "COMBO_BONUS",
	"INTERACTION_ADJUST_POINT_TIMES_PER_YEAR":  "RECYCLING",
	"INTERACTION_REGISTRY_POINT":               "REGISTRATION",
	"CONSULTATION_BONUS":                       "CONSULTATION",
	"INTERACTION_ADJUST_POINT_BY_MANAGER":      "MANUAL_ADJUSTMENT",
	"REDEMPTION_DEDUCTION":                     "REDEMPTION",
}

// categoryFor returns the fixed category for an event type, falling back to
// OTHER for anything not in the table (unknown types are handled upstream
// by Calculate, which also records a CalculationError).
func categoryFor(eventType string) string {
	if c, ok := categories[eventType]; ok {
		return c
	}
	return "OTHER"
}

func interactionRegistryPoint(params map[string]any, _ events.Input) (int64, string, map[string]any) {
	bonus := numParam(params, decimal.Zero, "registrationBonus", "bonus", "reward")
	return floorInt(bonus), fmt.Sprintf("floor(%s)", bonus), map[string]any{"bonus": bonus}
}

func orderBasePoint(params map[string]any, in events.Input) (int64, string, map[string]any) {
	amount, _ := transactionAmount(in)
	rate := baseRate(params, string(in.Market), decimal.NewFromFloat(0.1), decimal.NewFromInt(1))
	points := amount.Mul(rate)
	return floorInt(points), fmt.Sprintf("floor(%s * %s)", amount, rate),
		map[string]any{"amount": amount, "rate": rate}
}

func orderMultiplePoint(params map[string]any, in events.Input) (int64, string, map[string]any) {
	amount, _ := transactionAmount(in)
	rate := baseRate(params, string(in.Market), decimal.NewFromFloat(0.1), decimal.NewFromInt(1))
	base := amount.Mul(rate).Floor()
	multiplier := numParam(params, decimal.NewFromInt(1), "multiplier")
	bonus := base.Mul(multiplier).Floor().Sub(base)
	return bonus.IntPart(), fmt.Sprintf("floor(floor(%s * %s) * %s) - floor(%s * %s)", amount, rate, multiplier, amount, rate),
		map[string]any{"amount": amount, "rate": rate, "multiplier": multiplier, "base": base}
}

func flexibleCampaignBonus(params map[string]any, in events.Input) (int64, string, map[string]any) {
	if hasParam(params, "fixedBonus", "bonus") {
		bonus := numParam(params, decimal.Zero, "fixedBonus", "bonus")
		return floorInt(bonus), fmt.Sprintf("floor(%s)", bonus), map[string]any{"bonus": bonus}
	}
	if hasParam(params, "multiplier") {
		return orderMultiplePoint(params, in)
	}
	amount, _ := transactionAmount(in)
	rate := numParam(params, decimal.Zero, "campaignRate", "rate")
	points := amount.Mul(rate)
	return floorInt(points), fmt.Sprintf("floor(%s * %s)", amount, rate),
		map[string]any{"amount": amount, "rate": rate}
}

func flexibleMultiplierBonus(params map[string]any, in events.Input) (int64, string, map[string]any) {
	amount, _ := transactionAmount(in)
	rate := baseRate(params, string(in.Market), decimal.NewFromFloat(0.1), decimal.NewFromInt(1))
	base := amount.Mul(rate).Floor()
	multiplier := numParam(params, decimal.NewFromInt(1), "multiplier")
	bonus := base.Mul(multiplier.Sub(decimal.NewFromInt(1))).Floor()
	return bonus.IntPart(), fmt.Sprintf("floor(floor(%s * %s) * (%s - 1.0))", amount, rate, multiplier),
		map[string]any{"amount": amount, "rate": rate, "multiplier": multiplier, "base": base}
}

func flexibleBasketAmount(params map[string]any, in events.Input) (int64, string, map[string]any) {
	amount, _ := transactionAmount(in)
	threshold := numParam(params, decimal.Zero, "threshold")
	if amount.LessThan(threshold) {
		return 0, fmt.Sprintf("%s < threshold(%s) -> 0", amount, threshold), map[string]any{"amount": amount, "threshold": threshold}
	}
	bonus := numParam(params, decimal.Zero, "bonus", "reward")
	return floorInt(bonus), fmt.Sprintf("%s >= threshold(%s) -> floor(%s)", amount, threshold, bonus),
		map[string]any{"amount": amount, "threshold": threshold, "bonus": bonus}
}

func flexibleComboProductMultiplier(params map[string]any, _ events.Input) (int64, string, map[string]any) {
	bonus := numParam(params, decimal.Zero, "bonus", "reward", "fixedBonus")
	return floorInt(bonus), fmt.Sprintf("floor(%s)", bonus), map[string]any{"bonus": bonus}
}

func interactionAdjustPointTimesPerYear(params map[string]any, in events.Input) (int64, string, map[string]any) {
	recycled, _ := toDecimal(in.Attr("recycledCount"))
	maxPerYear, hasMax := firstPresent(params, "maxPerYear", "maxPerPeriod")
	count := recycled
	if hasMax {
		if count.GreaterThan(maxPerYear) {
			count = maxPerYear
		}
	}
	perItem := numParam(params, decimal.Zero, "pointsPerBottle", "rewardPerItem", "rewardPerActivity")
	points := count.Mul(perItem)
	return floorInt(points), fmt.Sprintf("floor(min(%s, cap) * %s)", recycled, perItem),
		map[string]any{"recycledCount": recycled, "perItem": perItem, "cappedCount": count}
}

func firstPresent(params map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			if d, ok := toDecimal(v); ok {
				return d, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func consultationBonus(params map[string]any, _ events.Input) (int64, string, map[string]any) {
	bonus := numParam(params, decimal.Zero, "consultationBonus")
	return floorInt(bonus), fmt.Sprintf("floor(%s)", bonus), map[string]any{"consultationBonus": bonus}
}

func interactionAdjustPointByManager(_ map[string]any, in events.Input) (int64, string, map[string]any) {
	adjusted, _ := toDecimal(in.Attr("adjustedPoints"))
	return floorInt(adjusted), fmt.Sprintf("floor(%s)", adjusted), map[string]any{"adjustedPoints": adjusted}
}

func redemptionDeduction(_ map[string]any, in events.Input) (int64, string, map[string]any) {
	redeemed, _ := toDecimal(in.Attr("redemptionPoints"))
	points := -floorInt(redeemed)
	return points, fmt.Sprintf("-floor(%s)", redeemed), map[string]any{"redemptionPoints": redeemed}
}
