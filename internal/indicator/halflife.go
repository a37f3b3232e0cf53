package indicator

import (
	"fmt"
	"math"
)

// HalfLife estimates the half-life of mean reversion of the log-price
// spread between two assets, in bars of the input series. The spread is
// log(p1) - beta*log(p2) with beta fitted by OLS; an AR(1) fit on the
// spread then gives t_half = ln(2) / -ln(phi).
//
// Returns +Inf when the AR(1) coefficient shows no mean reversion
// (phi <= 0 or phi >= 1). Used by the report builder for filtering, not
// by the live strategy loop.
func HalfLife(p1, p2 []float64) (float64, error) {
	n := len(p1)
	if len(p2) < n {
		n = len(p2)
	}
	if n < 3 {
		return 0, fmt.Errorf("half-life: need at least 3 observations, got %d: %w", n, ErrInsufficientData)
	}

	s1 := tail(p1, n)
	s2 := tail(p2, n)

	log1 := make([]float64, n)
	log2 := make([]float64, n)
	for i := 0; i < n; i++ {
		log1[i] = math.Log(s1[i])
		log2[i] = math.Log(s2[i])
	}

	beta := olsSlope(log2, log1)
	spread := make([]float64, n)
	for i := 0; i < n; i++ {
		spread[i] = log1[i] - beta*log2[i]
	}

	phi := olsSlope(spread[:n-1], spread[1:])
	if math.IsNaN(phi) || phi <= 0 || phi >= 1 {
		return math.Inf(1), nil
	}
	return math.Ln2 / -math.Log(phi), nil
}

// olsSlope returns the OLS slope of y on x (NaN when x is constant).
func olsSlope(x, y []float64) float64 {
	meanX := Mean(x)
	meanY := Mean(y)

	var num, den float64
	for i := range x {
		dx := x[i] - meanX
		num += dx * (y[i] - meanY)
		den += dx * dx
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
