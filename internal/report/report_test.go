package report

import (
	"context"
	"math"
	"testing"

	"statarb-systemv1/internal/indicator"
	"statarb-systemv1/internal/model"
)

type fakeProvider struct {
	candles map[string][]model.Candle
}

func (f *fakeProvider) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	candles := f.candles[symbol]
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func candlesFrom(closes []float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Close:     c,
		}
	}
	return out
}

// cointegratedLegs builds a trending leg and a second leg tied to it at
// twice the level with a small alternating residual.
func cointegratedLegs(n int) (a, b []float64) {
	a = make([]float64, n)
	b = make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 100 + float64(i)
		resid := 0.5
		if i%2 == 1 {
			resid = -0.5
		}
		b[i] = 2*a[i] + resid
	}
	return a, b
}

func TestBuildCointegratedPair(t *testing.T) {
	closesA, closesB := cointegratedLegs(200)
	provider := &fakeProvider{candles: map[string][]model.Candle{
		"ETHUSDT": candlesFrom(closesA),
		"BTCUSDT": candlesFrom(closesB),
	}}

	builder := NewBuilder(provider, []string{"1m", "5m"}, 500)
	pair := model.Pair{
		AssetA: model.Asset{BaseAsset: "ETH", QuoteAsset: "USDT"},
		AssetB: model.Asset{BaseAsset: "BTC", QuoteAsset: "USDT"},
	}

	report, err := builder.Build(context.Background(), pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(report.Correlations) != 2 {
		t.Fatalf("correlations = %d timeframes, want 2", len(report.Correlations))
	}
	if report.OverallPrices < 0.99 {
		t.Fatalf("overall prices corr = %v, want near 1", report.OverallPrices)
	}
	if !report.Cointegration.Cointegrated {
		t.Fatalf("pair not cointegrated: %+v", report.Cointegration)
	}
	if report.Beta == 0 {
		t.Fatal("beta = 0 for correlated legs")
	}
	if report.Score <= 0 {
		t.Fatalf("score = %v, want positive", report.Score)
	}
}

func TestBuildRanksTiedPairAboveUnrelated(t *testing.T) {
	closesA, closesB := cointegratedLegs(200)

	// Unrelated legs: one trends, one oscillates in place.
	flat := make([]float64, 200)
	for i := range flat {
		flat[i] = 100
		if i%2 == 1 {
			flat[i] = 100.5
		}
	}

	provider := &fakeProvider{candles: map[string][]model.Candle{
		"ETHUSDT": candlesFrom(closesA),
		"BTCUSDT": candlesFrom(closesB),
		"SOLUSDT": candlesFrom(flat),
	}}
	builder := NewBuilder(provider, []string{"1m"}, 500)

	good, err := builder.Build(context.Background(), model.Pair{
		AssetA: model.Asset{BaseAsset: "ETH", QuoteAsset: "USDT"},
		AssetB: model.Asset{BaseAsset: "BTC", QuoteAsset: "USDT"},
	})
	if err != nil {
		t.Fatalf("Build good: %v", err)
	}
	bad, err := builder.Build(context.Background(), model.Pair{
		AssetA: model.Asset{BaseAsset: "ETH", QuoteAsset: "USDT"},
		AssetB: model.Asset{BaseAsset: "SOL", QuoteAsset: "USDT"},
	})
	if err != nil {
		t.Fatalf("Build bad: %v", err)
	}
	if good.Score <= bad.Score {
		t.Fatalf("good score %v not above bad score %v", good.Score, bad.Score)
	}
}

func TestScorePairComponents(t *testing.T) {
	strong := &PairReport{
		Cointegration:  indicator.CointegrationResult{PValue: 0.01},
		HalfLife:       5,
		OverallPrices:  0.95,
		OverallReturns: 0.9,
		Spread:         SpreadStats{Mean: 100, StdDev: 10, MeanCrossings: 60},
	}
	weak := &PairReport{
		Cointegration:  indicator.CointegrationResult{PValue: 0.9},
		HalfLife:       math.Inf(1),
		OverallPrices:  0.1,
		OverallReturns: 0.05,
		Spread:         SpreadStats{Mean: 100, StdDev: 0.1, MeanCrossings: 1},
	}

	s, w := scorePair(strong), scorePair(weak)
	if s <= w {
		t.Fatalf("strong %v not above weak %v", s, w)
	}
	if s < 0 || s > 1 || w < 0 || w > 1 {
		t.Fatalf("scores out of range: %v, %v", s, w)
	}
}

func TestSpreadStatsCountsCrossings(t *testing.T) {
	stats := spreadStats([]float64{1, -1, 1, -1, 1})
	if stats.MeanCrossings != 4 {
		t.Fatalf("crossings = %d, want 4", stats.MeanCrossings)
	}
	if math.Abs(stats.Mean-0.2) > 1e-12 {
		t.Fatalf("mean = %v, want 0.2", stats.Mean)
	}

	if got := spreadStats(nil); got.MeanCrossings != 0 || got.StdDev != 0 {
		t.Fatalf("empty spread stats = %+v", got)
	}
}
