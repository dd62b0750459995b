package calibration

import (
	"github.com/shopspring/decimal"
)

// Damping weights of the nightly update: new = old×DampingOld + perfect×DampingNew
const (
	DampingOld = 0.85
	DampingNew = 0.15
)

// FactorPrecision is the number of decimals a stored factor keeps
const FactorPrecision = 4

// Advisory band. Factors outside it are still written, only logged.
const (
	FactorWarnLow  = 0.5
	FactorWarnHigh = 2.0
)

// NextFactor computes the damped factor update.
// ok=false when mixed is 0 (the ratio is undefined).
func NextFactor(old, official, mixed float64) (float64, bool) {
	if mixed == 0 {
		return 0, false
	}

	perfect := decimal.NewFromFloat(official).Div(decimal.NewFromFloat(mixed))
	next := decimal.NewFromFloat(old).Mul(decimal.NewFromFloat(DampingOld)).
		Add(perfect.Mul(decimal.NewFromFloat(DampingNew))).
		Round(FactorPrecision)

	return next.InexactFloat64(), true
}

// outsideBand reports whether factor falls outside the advisory band
func outsideBand(factor float64) bool {
	return factor < FactorWarnLow || factor > FactorWarnHigh
}
