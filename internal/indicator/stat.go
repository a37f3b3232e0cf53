// Package indicator provides the pure statistical functions of the
// pairs-trading engine: hedge-ratio beta, spread z-score, ADX trend
// strength, Pearson correlation, Engle-Granger cointegration and the
// half-life of mean reversion.
//
// All functions operate on candle/price windows passed by the caller and
// hold no state. "Not enough data" is reported through an explicit ok
// bool (or error), never as a zero value.
package indicator

import "math"

// Mean returns the arithmetic mean. Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation around the given mean.
func StdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// SimpleReturns converts a price series into period-over-period simple
// returns. Returns false if the series is shorter than 2 observations or
// contains a zero price.
func SimpleReturns(prices []float64) ([]float64, bool) {
	if len(prices) < 2 {
		return nil, false
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev := prices[i-1]
		if prev == 0 {
			return nil, false
		}
		out = append(out, prices[i]/prev-1)
	}
	return out, true
}

// LogReturns converts a price series into log returns. Non-positive
// prices contribute a zero return, matching the report semantics.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1], prices[i]
		if prev > 0 && cur > 0 {
			out = append(out, math.Log(cur/prev))
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// tail returns the last n elements of s (all of s when len(s) <= n).
func tail(s []float64, n int) []float64 {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
