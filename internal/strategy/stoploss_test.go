package strategy

import (
	"math"
	"testing"
)

func TestDynamicStopLossShortWindowFallsBack(t *testing.T) {
	cfg := StopLossConfig{}.withDefaults()
	spread := make([]float64, cfg.MinSamples-1)
	for i := range spread {
		spread[i] = 100 + float64(i)
	}
	if got := dynamicStopLoss(spread, cfg); got != cfg.MinPercent {
		t.Fatalf("stop = %v, want MinPercent %v", got, cfg.MinPercent)
	}
}

func TestDynamicStopLossClampsToMax(t *testing.T) {
	cfg := StopLossConfig{}.withDefaults()
	// Wildly swinging spread: both the volatility and drawdown legs
	// blow far past the ceiling.
	spread := make([]float64, cfg.MinSamples*2)
	for i := range spread {
		if i%2 == 0 {
			spread[i] = 100
		} else {
			spread[i] = 40
		}
	}
	if got := dynamicStopLoss(spread, cfg); got != cfg.MaxPercent {
		t.Fatalf("stop = %v, want MaxPercent %v", got, cfg.MaxPercent)
	}
}

func TestDynamicStopLossClampsToMin(t *testing.T) {
	cfg := StopLossConfig{}.withDefaults()
	// Nearly frozen spread: both components land under the floor.
	spread := make([]float64, cfg.MinSamples*2)
	for i := range spread {
		spread[i] = 100 + 0.0001*float64(i%2)
	}
	if got := dynamicStopLoss(spread, cfg); got != cfg.MinPercent {
		t.Fatalf("stop = %v, want MinPercent %v", got, cfg.MinPercent)
	}
}

func TestDynamicStopLossTakesLargerComponent(t *testing.T) {
	cfg := StopLossConfig{
		VolatilityWindow: 180,
		MinSamples:       30,
		Multiplier:       2,
		DrawdownBuffer:   1.2,
		MinPercent:       0.001,
		MaxPercent:       1000,
	}
	// One deep dip dominates: max drawdown 2% while per-step moves stay
	// small, so the drawdown component must win.
	spread := make([]float64, 60)
	for i := range spread {
		spread[i] = 100
	}
	for i := 30; i < 40; i++ {
		spread[i] = 100 - 0.2*float64(i-29)
	}

	got := dynamicStopLoss(spread, cfg)
	wantDrawdown := 2.0 * cfg.DrawdownBuffer
	if math.Abs(got-wantDrawdown) > 1e-9 {
		t.Fatalf("stop = %v, want drawdown component %v", got, wantDrawdown)
	}
}

func TestMaxDrawdownPercent(t *testing.T) {
	if dd := maxDrawdownPercent([]float64{100, 110, 99, 105}); math.Abs(dd-10) > 1e-9 {
		t.Fatalf("drawdown = %v, want 10", dd)
	}
	if dd := maxDrawdownPercent([]float64{1, 2, 3}); dd != 0 {
		t.Fatalf("drawdown = %v, want 0 for a rising series", dd)
	}
	if dd := maxDrawdownPercent(nil); dd != 0 {
		t.Fatalf("drawdown = %v, want 0 for empty input", dd)
	}
}
