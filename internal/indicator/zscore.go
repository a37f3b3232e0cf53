package indicator

// Spread builds the hedged spread series priceA[i] - beta*priceB[i] over
// the aligned tails of the two price series.
func Spread(pricesA, pricesB []float64, beta float64) []float64 {
	n := len(pricesA)
	if len(pricesB) < n {
		n = len(pricesB)
	}
	pA := tail(pricesA, n)
	pB := tail(pricesB, n)

	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		spread[i] = pA[i] - beta*pB[i]
	}
	return spread
}

// SpreadZScore standardizes the latest spread value against the rolling
// window: (spread[last] - mean) / stddev.
//
// Returns false for an empty window or zero standard deviation; a false
// result must never be read as z == 0.
func SpreadZScore(pricesA, pricesB []float64, beta float64) (float64, bool) {
	spread := Spread(pricesA, pricesB, beta)
	if len(spread) == 0 {
		return 0, false
	}

	mean := Mean(spread)
	std := StdDev(spread, mean)
	if std == 0 {
		return 0, false
	}
	return (spread[len(spread)-1] - mean) / std, true
}
