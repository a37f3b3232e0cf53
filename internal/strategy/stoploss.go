package strategy

import (
	"math"

	"statarb-systemv1/internal/indicator"
)

// StopLossConfig tunes the volatility-scaled stop-loss.
type StopLossConfig struct {
	VolatilityWindow int     // candles of spread history to look at
	MinSamples       int     // below this, fall back to MinPercent
	Multiplier       float64 // stddev of spread returns * this
	DrawdownBuffer   float64 // max drawdown * this (>1)
	MinPercent       float64 // clamp floor
	MaxPercent       float64 // clamp ceiling
}

func (c StopLossConfig) withDefaults() StopLossConfig {
	if c.VolatilityWindow == 0 {
		c.VolatilityWindow = 180
	}
	if c.MinSamples == 0 {
		c.MinSamples = 30
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.DrawdownBuffer == 0 {
		c.DrawdownBuffer = 1.2
	}
	if c.MinPercent == 0 {
		c.MinPercent = 0.5
	}
	if c.MaxPercent == 0 {
		c.MaxPercent = 3.0
	}
	return c
}

// dynamicStopLoss sizes the stop to recent spread behavior: the stddev
// of the spread's percentage returns scaled by the multiplier, or the
// spread's maximum drawdown padded by the buffer factor, whichever is
// larger, clamped into [MinPercent, MaxPercent]. A window shorter than
// MinSamples yields exactly MinPercent.
func dynamicStopLoss(spread []float64, cfg StopLossConfig) float64 {
	if len(spread) < cfg.MinSamples {
		return cfg.MinPercent
	}

	returns := spreadReturns(spread)
	if len(returns) == 0 {
		return cfg.MinPercent
	}

	base := indicator.StdDev(returns, indicator.Mean(returns)) * cfg.Multiplier
	drawdown := maxDrawdownPercent(spread) * cfg.DrawdownBuffer

	stop := math.Max(base, drawdown)
	if stop < cfg.MinPercent {
		return cfg.MinPercent
	}
	if stop > cfg.MaxPercent {
		return cfg.MaxPercent
	}
	return stop
}

// spreadReturns converts the spread series into percentage moves,
// skipping steps where the previous value is zero.
func spreadReturns(spread []float64) []float64 {
	out := make([]float64, 0, len(spread)-1)
	for i := 1; i < len(spread); i++ {
		prev := spread[i-1]
		if prev == 0 {
			continue
		}
		out = append(out, (spread[i]-prev)/math.Abs(prev)*100)
	}
	return out
}

// maxDrawdownPercent finds the largest peak-to-trough drop of the
// series, as a percentage of the peak.
func maxDrawdownPercent(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	peak := series[0]
	maxDD := 0.0
	for _, v := range series[1:] {
		if v > peak {
			peak = v
			continue
		}
		if peak != 0 {
			dd := (peak - v) / math.Abs(peak) * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}
