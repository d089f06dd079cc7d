package services

import "math"

// ComputePayout splits the pot (wager * 2) between the winner and the
// platform. The fee is floored, never rounded up, so fee + payout <= pot
// always holds with the fee absorbing the remainder. A fee-exempt winner
// (active subscription at resolution time) pays nothing.
func ComputePayout(wager int64, feeRate float64, feeExempt bool) (fee, payout int64) {
	pot := wager * 2
	if !feeExempt {
		fee = int64(math.Floor(float64(pot) * feeRate))
	}
	return fee, pot - fee
}
