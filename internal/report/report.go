package report

import (
	"context"
	"fmt"
	"log"
	"math"

	"statarb-systemv1/internal/indicator"
	"statarb-systemv1/internal/model"
)

// TimeframeCorrelation holds both correlation views for one timeframe.
type TimeframeCorrelation struct {
	ByPrices  float64 `json:"by_prices"`
	ByReturns float64 `json:"by_returns"`
}

// SpreadStats summarizes the recent spread series.
type SpreadStats struct {
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	CurrentZScore float64 `json:"current_zscore"`
	MeanCrossings int     `json:"mean_crossings"`
}

// PairReport is the tradability assessment for one candidate pair.
type PairReport struct {
	Pair           string                          `json:"pair"`
	Correlations   map[string]TimeframeCorrelation `json:"correlations"`
	OverallPrices  float64                         `json:"overall_prices"`
	OverallReturns float64                         `json:"overall_returns"`

	Cointegration indicator.CointegrationResult `json:"cointegration"`
	HalfLife      float64                       `json:"half_life"`
	Beta          float64                       `json:"beta"`
	Spread        SpreadStats                   `json:"spread"`

	Score float64 `json:"score"`
}

// Builder assembles pair reports from candle history.
type Builder struct {
	provider   model.DataProvider
	timeframes []string
	limit      int
}

// NewBuilder creates a report builder. When timeframes is empty every
// supported timeframe is scored.
func NewBuilder(provider model.DataProvider, timeframes []string, limit int) *Builder {
	if len(timeframes) == 0 {
		timeframes = model.Timeframes
	}
	if limit == 0 {
		limit = 500
	}
	return &Builder{provider: provider, timeframes: timeframes, limit: limit}
}

// Build fetches history for both legs across the configured timeframes
// and produces the pair's report. Cointegration, half-life and spread
// stats are computed on the shortest configured timeframe.
func (b *Builder) Build(ctx context.Context, pair model.Pair) (*PairReport, error) {
	report := &PairReport{
		Pair:         pair.Symbol(),
		Correlations: make(map[string]TimeframeCorrelation, len(b.timeframes)),
	}

	perTFPrices := make(map[string]float64, len(b.timeframes))
	perTFReturns := make(map[string]float64, len(b.timeframes))

	var baseA, baseB []model.Candle
	for i, tf := range b.timeframes {
		candlesA, err := b.provider.FetchCandles(ctx, pair.AssetA.Symbol(), tf, b.limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s/%s: %w", pair.AssetA.Symbol(), tf, err)
		}
		candlesB, err := b.provider.FetchCandles(ctx, pair.AssetB.Symbol(), tf, b.limit)
		if err != nil {
			return nil, fmt.Errorf("fetch %s/%s: %w", pair.AssetB.Symbol(), tf, err)
		}
		if i == 0 {
			baseA, baseB = candlesA, candlesB
		}

		corr := TimeframeCorrelation{
			ByPrices:  indicator.CorrelationByPrices(candlesA, candlesB),
			ByReturns: indicator.CorrelationByReturns(candlesA, candlesB),
		}
		report.Correlations[tf] = corr
		perTFPrices[tf] = corr.ByPrices
		perTFReturns[tf] = corr.ByReturns
	}

	report.OverallPrices = indicator.OverallCorrelation(perTFPrices)
	report.OverallReturns = indicator.OverallCorrelation(perTFReturns)

	pricesA := model.Closes(baseA)
	pricesB := model.Closes(baseB)

	coint, err := indicator.EngleGranger(pricesA, pricesB)
	if err != nil {
		log.Printf("[report] cointegration unavailable for %s: %v", report.Pair, err)
		report.Cointegration = indicator.CointegrationResult{PValue: 1}
	} else {
		report.Cointegration = coint
	}

	hl, err := indicator.HalfLife(pricesA, pricesB)
	if err != nil {
		log.Printf("[report] half-life unavailable for %s: %v", report.Pair, err)
		hl = math.Inf(1)
	}
	report.HalfLife = hl

	if beta, ok := indicator.Beta(pricesA, pricesB); ok {
		report.Beta = beta
		report.Spread = spreadStats(indicator.Spread(pricesA, pricesB, beta))
	}

	report.Score = scorePair(report)
	return report, nil
}

// spreadStats computes the spread's mean, deviation, current z-score
// and how often it crossed its own mean. Frequent crossings suggest a
// spread that actually reverts.
func spreadStats(spread []float64) SpreadStats {
	if len(spread) == 0 {
		return SpreadStats{}
	}
	mean := indicator.Mean(spread)
	std := indicator.StdDev(spread, mean)

	var stats SpreadStats
	stats.Mean = mean
	stats.StdDev = std
	if std > 0 {
		stats.CurrentZScore = (spread[len(spread)-1] - mean) / std
	}

	for i := 1; i < len(spread); i++ {
		prev := spread[i-1] - mean
		cur := spread[i] - mean
		if (prev < 0 && cur >= 0) || (prev > 0 && cur <= 0) {
			stats.MeanCrossings++
		}
	}
	return stats
}
