package indicator

import (
	"math"

	"statarb-systemv1/internal/model"
)

// timeframeWeights bias the overall correlation score toward longer
// timeframes: agreement on the daily chart says more about a pair's
// long-run relationship than agreement on the minute chart.
var timeframeWeights = map[string]float64{
	"1m":  1,
	"5m":  2,
	"15m": 3,
	"30m": 4,
	"1h":  5,
	"4h":  6,
	"1d":  7,
}

// Pearson computes the Pearson correlation coefficient of two equal-role
// series aligned on their first min(lenX, lenY) observations. Degenerate
// input (fewer than 2 points, zero variance, NaN sums) yields 0 — unlike
// beta/z-score, a zero correlation is a legitimate "no relationship"
// reading here.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumX2 += x[i] * x[i]
		sumY2 += y[i] * y[i]
	}

	fn := float64(n)
	numerator := fn*sumXY - sumX*sumY
	denominator := math.Sqrt((fn*sumX2 - sumX*sumX) * (fn*sumY2 - sumY*sumY))
	if denominator == 0 || math.IsNaN(numerator) || math.IsNaN(denominator) {
		return 0
	}
	return numerator / denominator
}

// CorrelationByPrices correlates closing prices of two candle series.
func CorrelationByPrices(candlesA, candlesB []model.Candle) float64 {
	return Pearson(model.Closes(candlesA), model.Closes(candlesB))
}

// CorrelationByReturns correlates log returns of closing prices.
func CorrelationByReturns(candlesA, candlesB []model.Candle) float64 {
	return Pearson(LogReturns(model.Closes(candlesA)), LogReturns(model.Closes(candlesB)))
}

// OverallCorrelation folds per-timeframe correlations into one score as
// a weighted average, longer timeframes weighted more heavily. Unknown
// timeframes get weight 1. Returns 0 for an empty input.
func OverallCorrelation(perTimeframe map[string]float64) float64 {
	var weighted, totalWeight float64
	for _, tf := range model.Timeframes {
		value, ok := perTimeframe[tf]
		if !ok {
			continue
		}
		weight, ok := timeframeWeights[tf]
		if !ok {
			weight = 1
		}
		weighted += value * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}
