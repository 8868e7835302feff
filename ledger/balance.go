/*
balance.go - The accrual/redemption balance transition (SPEC_FULL.md §4.5
step 9) and the ledger-identity invariants it must uphold.
*/
package ledger

// ApplyReward computes the next Balance given a pre-mutation snapshot and a
// signed total reward. Positive totals accrue; negative totals redeem.
//
// Over-redemption policy (SPEC_FULL.md §11, Open Question in spec.md §9):
// this engine clamps Available at 0 while Used still increases by the full
// requested amount — the "clamp-both" policy, matching spec.md §8 scenario 6
// literally. It is documented here rather than silently chosen so a future
// reader can find the decision.
func ApplyReward(pre Balance, totalPointsAwarded int64) Balance {
	next := pre
	next.TransactionCount++
	next.AccountVersion++

	if totalPointsAwarded >= 0 {
		next.Total += totalPointsAwarded
		next.Available += totalPointsAwarded
		return next
	}

	redeemed := -totalPointsAwarded
	clamped := redeemed
	if clamped > next.Available {
		clamped = next.Available
	}
	next.Available -= clamped
	next.Used += redeemed
	return next
}
