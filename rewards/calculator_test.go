package rewards_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/loyalty-engine/events"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/rewards"
	"github.com/warp/loyalty-engine/rules"
)

func TestCalculate_OrderBasePoint_HK(t *testing.T) {
	// GIVEN an HK purchase of 2000 with standardRate 1
	// WHEN ORDER_BASE_POINT is calculated
	// THEN it awards 2000 points

	matched := rules.Matched{RuleName: "base-purchase-hk", Priority: 100, Event: rules.RuleEvent{
		Type: "ORDER_BASE_POINT", Params: map[string]any{"standardRate": 1.0},
	}}
	in := events.Input{Market: ledger.MarketHK, Attributes: map[string]any{"amount": 2000.0}}

	entry, calcErr := rewards.Calculate(matched, in)

	require.Nil(t, calcErr)
	assert.Equal(t, int64(2000), entry.Points)
	assert.Equal(t, "BASE_PURCHASE", entry.Category)
}

func TestCalculate_OrderBasePoint_JP_UsesConversionRate(t *testing.T) {
	// GIVEN a JP purchase of 15000 with conversionRate 0.1
	// WHEN ORDER_BASE_POINT is calculated
	// THEN it awards 1500 points

	matched := rules.Matched{RuleName: "base-purchase-jp", Priority: 100, Event: rules.RuleEvent{
		Type: "ORDER_BASE_POINT", Params: map[string]any{"conversionRate": 0.1},
	}}
	in := events.Input{Market: ledger.MarketJP, Attributes: map[string]any{"amount": 15000.0}}

	entry, calcErr := rewards.Calculate(matched, in)

	require.Nil(t, calcErr)
	assert.Equal(t, int64(1500), entry.Points)
}

func TestCalculate_OrderMultiplePointLimit_IncrementalBonusOnly(t *testing.T) {
	// GIVEN a JP purchase of 1000 with multiplier 2.0
	// WHEN ORDER_MULTIPLE_POINT_LIMIT is calculated
	// THEN the entry's points are the bonus ABOVE base, not base+bonus

	matched := rules.Matched{RuleName: "second-purchase-bonus", Priority: 50, Event: rules.RuleEvent{
		Type: "ORDER_MULTIPLE_POINT_LIMIT", Params: map[string]any{"multiplier": 2.0},
	}}
	in := events.Input{Market: ledger.MarketJP, Attributes: map[string]any{"amount": 1000.0}}

	entry, calcErr := rewards.Calculate(matched, in)

	require.Nil(t, calcErr)
	assert.Equal(t, int64(100), entry.Points)
}

func TestCalculate_FlexibleBasketAmount_ThresholdGating(t *testing.T) {
	params := map[string]any{"threshold": 5000.0, "bonus": 300.0}

	above := rules.Matched{RuleName: "basket-bonus", Priority: 10, Event: rules.RuleEvent{Type: "FLEXIBLE_BASKET_AMOUNT", Params: params}}
	entryAbove, _ := rewards.Calculate(above, events.Input{Attributes: map[string]any{"amount": 5500.0}})
	assert.Equal(t, int64(300), entryAbove.Points)

	below := rules.Matched{RuleName: "basket-bonus", Priority: 10, Event: rules.RuleEvent{Type: "FLEXIBLE_BASKET_AMOUNT", Params: params}}
	entryBelow, _ := rewards.Calculate(below, events.Input{Attributes: map[string]any{"amount": 4999.0}})
	assert.Equal(t, int64(0), entryBelow.Points)
}

func TestCalculate_RedemptionDeduction_IsNegative(t *testing.T) {
	matched := rules.Matched{RuleName: "redeem", Priority: 1, Event: rules.RuleEvent{Type: "REDEMPTION_DEDUCTION"}}
	in := events.Input{Attributes: map[string]any{"redemptionPoints": 500.0}}

	entry, calcErr := rewards.Calculate(matched, in)

	require.Nil(t, calcErr)
	assert.Equal(t, int64(-500), entry.Points)
	assert.Equal(t, "REDEMPTION", entry.Category)
}

func TestCalculate_UnknownType_YieldsZeroAndCalculationError(t *testing.T) {
	matched := rules.Matched{RuleName: "mystery", Priority: 1, Event: rules.RuleEvent{Type: "NOT_A_REAL_TYPE"}}

	entry, calcErr := rewards.Calculate(matched, events.Input{})

	require.NotNil(t, calcErr)
	assert.Equal(t, int64(0), entry.Points)
	assert.Equal(t, "CalculationError", calcErr.Kind)
}
