package service

import (
	"github.com/shopspring/decimal"
)

// MinLot is the fail-safe minimum lot size. When sizing inputs are missing we
// copy at the minimum rather than drop the trade.
const MinLot = 0.01

// SizingInputs carries everything the proportional sizing rule reads. A zero
// or negative balance means "unavailable".
type SizingInputs struct {
	MasterVolume    float64
	MasterBalance   float64
	FollowerBalance float64
	Allocation      float64
	RiskFactor      float64
}

// ComputeVolume scales the master's lot size by the follower/master balance
// ratio and the session risk factor:
//
//	followerEquity = allocation when set, else real balance
//	raw = masterVolume * (followerEquity / masterBalance) * riskFactor
//
// rounded to 2 decimal places half away from zero, then clamped to
// [MinLot, masterVolume]. A follower is never sized above the master's own
// order. Missing balances fall back to MinLot.
func ComputeVolume(in SizingInputs) float64 {
	risk := in.RiskFactor
	if risk <= 0 {
		risk = 1.0
	}
	followerEquity := in.FollowerBalance
	if in.Allocation > 0 {
		followerEquity = in.Allocation
	}

	final := MinLot
	if in.MasterBalance > 0 && followerEquity > 0 {
		raw := decimal.NewFromFloat(in.MasterVolume).
			Mul(decimal.NewFromFloat(followerEquity)).
			Div(decimal.NewFromFloat(in.MasterBalance)).
			Mul(decimal.NewFromFloat(risk)).
			Round(2)
		final, _ = raw.Float64()
	}

	if final < MinLot {
		final = MinLot
	}
	if final > in.MasterVolume {
		final = in.MasterVolume
	}
	return final
}

// invertOrderType mirrors a BUY into a SELL and vice versa for sessions with
// InvertCopy set. Unknown order types pass through unchanged.
func invertOrderType(orderType string) string {
	switch orderType {
	case "BUY":
		return "SELL"
	case "SELL":
		return "BUY"
	case "BUY_LIMIT":
		return "SELL_LIMIT"
	case "SELL_LIMIT":
		return "BUY_LIMIT"
	case "BUY_STOP":
		return "SELL_STOP"
	case "SELL_STOP":
		return "BUY_STOP"
	default:
		return orderType
	}
}
