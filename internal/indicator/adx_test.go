package indicator

import (
	"testing"

	"statarb-systemv1/internal/model"
)

// rampCandles rises by step each bar with a fixed 2-point range.
func rampCandles(n int, start, step float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		price := start + step*float64(i)
		out[i] = model.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
		}
	}
	return out
}

// flatCandles oscillate inside a fixed high/low envelope, so there is
// no directional movement at all.
func flatCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		close := 100.0
		if i%2 == 0 {
			close = 100.5
		}
		out[i] = model.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     close,
		}
	}
	return out
}

func TestADXStrongUptrend(t *testing.T) {
	// Every bar moves up: DM- is always zero, so DX is pinned at 100
	// and the smoothed ADX converges there too.
	adx, diPlus, diMinus, ok := FullADX(rampCandles(60, 100, 1), DefaultADXPeriod)
	if !ok {
		t.Fatal("expected ADX to be computable")
	}
	if adx < 60 {
		t.Fatalf("adx = %v, want >= 60 for a monotonic ramp", adx)
	}
	if Strength(adx) != TrendVeryStrong {
		t.Fatalf("strength = %v, want %v", Strength(adx), TrendVeryStrong)
	}
	if Direction(diPlus, diMinus) != TrendBullish {
		t.Fatalf("direction = %v, want %v", Direction(diPlus, diMinus), TrendBullish)
	}
}

func TestADXDowntrendIsBearish(t *testing.T) {
	_, diPlus, diMinus, ok := FullADX(rampCandles(60, 200, -1), DefaultADXPeriod)
	if !ok {
		t.Fatal("expected ADX to be computable")
	}
	if Direction(diPlus, diMinus) != TrendBearish {
		t.Fatalf("direction = %v, want %v", Direction(diPlus, diMinus), TrendBearish)
	}
}

func TestADXFlatMarketIsWeak(t *testing.T) {
	adx, diPlus, diMinus, ok := FullADX(flatCandles(60), DefaultADXPeriod)
	if !ok {
		t.Fatal("expected ADX to be computable")
	}
	if Strength(adx) != TrendWeak {
		t.Fatalf("adx = %v strength %v, want weak", adx, Strength(adx))
	}
	if Direction(diPlus, diMinus) != TrendSideways {
		t.Fatalf("direction = %v, want %v", Direction(diPlus, diMinus), TrendSideways)
	}
}

func TestADXInsufficientData(t *testing.T) {
	if _, ok := ADX(rampCandles(2*DefaultADXPeriod-1, 100, 1), DefaultADXPeriod); ok {
		t.Fatal("expected ok=false below 2*period candles")
	}
	if _, ok := ADX(rampCandles(60, 100, 1), 0); ok {
		t.Fatal("expected ok=false for non-positive period")
	}
}

func TestStrengthBuckets(t *testing.T) {
	cases := []struct {
		adx  float64
		want TrendStrength
	}{
		{0, TrendWeak},
		{19.9, TrendWeak},
		{20, TrendModerate},
		{39.9, TrendModerate},
		{40, TrendStrong},
		{59.9, TrendStrong},
		{60, TrendVeryStrong},
		{100, TrendVeryStrong},
	}
	for _, tc := range cases {
		if got := Strength(tc.adx); got != tc.want {
			t.Fatalf("Strength(%v) = %v, want %v", tc.adx, got, tc.want)
		}
	}
}
