package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/loyalty-engine/ledger"
)

func TestApplyReward_Accrual_IncreasesTotalAndAvailable(t *testing.T) {
	pre := ledger.Balance{Total: 1000, Available: 1000, Used: 0}

	next := ledger.ApplyReward(pre, 2000)

	assert.Equal(t, int64(3000), next.Total)
	assert.Equal(t, int64(3000), next.Available)
	assert.Equal(t, int64(0), next.Used)
	assert.Equal(t, pre.TransactionCount+1, next.TransactionCount)
	assert.Equal(t, pre.AccountVersion+1, next.AccountVersion)
}

func TestApplyReward_Redemption_PreservesTotal(t *testing.T) {
	// GIVEN pre-balance {total:1200, available:1200, used:0}
	// WHEN redeeming 500
	// THEN post-balance is {total:1200, available:700, used:500}

	pre := ledger.Balance{Total: 1200, Available: 1200, Used: 0}

	next := ledger.ApplyReward(pre, -500)

	assert.Equal(t, int64(1200), next.Total)
	assert.Equal(t, int64(700), next.Available)
	assert.Equal(t, int64(500), next.Used)
}

func TestApplyReward_OverRedemption_ClampsAvailableButUsedTracksFullAmount(t *testing.T) {
	// GIVEN pre-balance with only 100 available
	// WHEN redeeming 500
	// THEN available clamps at 0 while used increases by the full 500
	// (the documented "clamp-both" policy, SPEC_FULL.md §11)

	pre := ledger.Balance{Total: 1000, Available: 100, Used: 900}

	next := ledger.ApplyReward(pre, -500)

	assert.Equal(t, int64(1000), next.Total)
	assert.Equal(t, int64(0), next.Available)
	assert.Equal(t, int64(1400), next.Used)
}

func TestApplyReward_NeverProducesNegativeAvailable(t *testing.T) {
	pre := ledger.Balance{Total: 50, Available: 50, Used: 0}

	next := ledger.ApplyReward(pre, -1000)

	assert.GreaterOrEqual(t, next.Available, int64(0))
	assert.GreaterOrEqual(t, next.Used, int64(0))
	assert.GreaterOrEqual(t, next.Total, int64(0))
}
