package fx

import "github.com/shopspring/decimal"

// Convert converts amount from source into target currency using snap.
//
// It is pure given a snapshot and deliberately never fails: a missing
// rate must not abort an entire dashboard render, so every undefined
// case degrades to zero instead.
//
//   - source empty: 0 (an amount without a currency cannot be interpreted)
//   - target == source: amount unchanged, no rate lookup
//   - snap nil, either rate missing, or source rate zero: 0
//   - otherwise: amount * targetRate / sourceRate
func Convert(snap *Snapshot, target, source string, amount decimal.Decimal) decimal.Decimal {
	if source == "" {
		return decimal.Zero
	}
	if target == source {
		return amount
	}
	if snap == nil {
		return decimal.Zero
	}
	targetRate, ok := snap.Rate(target)
	if !ok {
		return decimal.Zero
	}
	sourceRate, ok := snap.Rate(source)
	if !ok || sourceRate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(targetRate).Div(sourceRate)
}
