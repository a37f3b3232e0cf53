package report

import "math"

// Component weights of the pair score. They sum to 1; the score lands
// in [0, 1] with higher meaning more tradable.
const (
	weightPValue      = 0.25
	weightHalfLife    = 0.20
	weightCorrPrices  = 0.20
	weightCorrReturns = 0.15
	weightCrossings   = 0.10
	weightSpreadStd   = 0.10
)

// scorePair maps the report's statistics onto a single ranking value.
// Each component is normalized to [0, 1] before weighting.
func scorePair(r *PairReport) float64 {
	// Lower p-value is better; 0.05 or worse scores zero.
	pScore := clamp01(1 - r.Cointegration.PValue/0.05)

	// Half-life in bars: under ~10 is ideal, useless past 200.
	hlScore := 0.0
	if !math.IsInf(r.HalfLife, 1) && r.HalfLife > 0 {
		hlScore = clamp01(1 - (r.HalfLife-10)/190)
	}

	corrPricesScore := clamp01(math.Abs(r.OverallPrices))
	corrReturnsScore := clamp01(math.Abs(r.OverallReturns))

	// Crossings: one crossing per ~10 bars saturates the component.
	crossScore := clamp01(float64(r.Spread.MeanCrossings) / 50.0)

	// A spread with some width relative to its mean level gives entries
	// room to pay for fees. Measured as coefficient of variation.
	stdScore := 0.0
	if r.Spread.Mean != 0 {
		stdScore = clamp01(math.Abs(r.Spread.StdDev/r.Spread.Mean) * 10)
	}

	return weightPValue*pScore +
		weightHalfLife*hlScore +
		weightCorrPrices*corrPricesScore +
		weightCorrReturns*corrReturnsScore +
		weightCrossings*crossScore +
		weightSpreadStd*stdScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
