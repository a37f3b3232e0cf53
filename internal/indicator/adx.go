package indicator

import (
	"math"

	"statarb-systemv1/internal/model"
)

// TrendStrength is the ordinal classification of an ADX reading.
type TrendStrength string

const (
	TrendWeak       TrendStrength = "weak"
	TrendModerate   TrendStrength = "moderate"
	TrendStrong     TrendStrength = "strong"
	TrendVeryStrong TrendStrength = "very_strong"
)

// TrendDirection classifies the DI+/DI- relationship.
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// DefaultADXPeriod is Wilder's classic smoothing period.
const DefaultADXPeriod = 14

// ADX computes the Average Directional Index over the candle window.
// Returns false when fewer than 2*period candles are available.
func ADX(candles []model.Candle, period int) (float64, bool) {
	adx, _, _, ok := FullADX(candles, period)
	return adx, ok
}

// FullADX computes ADX together with the latest DI+ and DI- readings.
func FullADX(candles []model.Candle, period int) (adx, diPlus, diMinus float64, ok bool) {
	if period <= 0 || len(candles) < period*2 {
		return 0, 0, 0, false
	}

	trueRanges := trueRangeSeries(candles)
	dmPlus, dmMinus := directionalMovement(candles)

	diPlusSeries, diMinusSeries := directionalIndicators(dmPlus, dmMinus, trueRanges, period)
	dx := dxSeries(diPlusSeries, diMinusSeries)
	if len(dx) < period {
		return 0, 0, 0, false
	}

	adxSeries := wilderSmoothing(dx, period)
	if len(adxSeries) == 0 || len(diPlusSeries) == 0 {
		return 0, 0, 0, false
	}

	return adxSeries[len(adxSeries)-1],
		diPlusSeries[len(diPlusSeries)-1],
		diMinusSeries[len(diMinusSeries)-1],
		true
}

// Strength buckets an ADX value: <20 weak, <40 moderate, <60 strong.
func Strength(adx float64) TrendStrength {
	switch {
	case adx < 20:
		return TrendWeak
	case adx < 40:
		return TrendModerate
	case adx < 60:
		return TrendStrong
	default:
		return TrendVeryStrong
	}
}

// Direction reads the trend side from DI+/DI-; a difference under 5
// points is considered sideways drift.
func Direction(diPlus, diMinus float64) TrendDirection {
	if math.Abs(diPlus-diMinus) < 5 {
		return TrendSideways
	}
	if diPlus > diMinus {
		return TrendBullish
	}
	return TrendBearish
}

func trueRangeSeries(candles []model.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		tr := cur.High - cur.Low
		if v := math.Abs(cur.High - prev.Close); v > tr {
			tr = v
		}
		if v := math.Abs(cur.Low - prev.Close); v > tr {
			tr = v
		}
		out = append(out, tr)
	}
	return out
}

func directionalMovement(candles []model.Candle) (dmPlus, dmMinus []float64) {
	dmPlus = make([]float64, 0, len(candles)-1)
	dmMinus = make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur, prev := candles[i], candles[i-1]
		upMove := cur.High - prev.High
		downMove := prev.Low - cur.Low

		switch {
		case upMove > downMove && upMove > 0:
			dmPlus = append(dmPlus, upMove)
			dmMinus = append(dmMinus, 0)
		case downMove > upMove && downMove > 0:
			dmPlus = append(dmPlus, 0)
			dmMinus = append(dmMinus, downMove)
		default:
			dmPlus = append(dmPlus, 0)
			dmMinus = append(dmMinus, 0)
		}
	}
	return dmPlus, dmMinus
}

// wilderSmoothing seeds with a simple average of the first period values
// and then applies Wilder's recursive smoothing.
func wilderSmoothing(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}
	out := make([]float64, 0, len(values)-period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out = append(out, sum/float64(period))

	for i := period; i < len(values); i++ {
		prev := out[len(out)-1]
		out = append(out, (prev*float64(period-1)+values[i])/float64(period))
	}
	return out
}

func directionalIndicators(dmPlus, dmMinus, trueRanges []float64, period int) (diPlus, diMinus []float64) {
	smoothedDMPlus := wilderSmoothing(dmPlus, period)
	smoothedDMMinus := wilderSmoothing(dmMinus, period)
	smoothedTR := wilderSmoothing(trueRanges, period)

	diPlus = make([]float64, 0, len(smoothedDMPlus))
	diMinus = make([]float64, 0, len(smoothedDMMinus))
	for i := range smoothedDMPlus {
		if smoothedTR[i] != 0 {
			diPlus = append(diPlus, smoothedDMPlus[i]/smoothedTR[i]*100)
			diMinus = append(diMinus, smoothedDMMinus[i]/smoothedTR[i]*100)
		} else {
			diPlus = append(diPlus, 0)
			diMinus = append(diMinus, 0)
		}
	}
	return diPlus, diMinus
}

func dxSeries(diPlus, diMinus []float64) []float64 {
	out := make([]float64, 0, len(diPlus))
	for i := range diPlus {
		sum := diPlus[i] + diMinus[i]
		if sum != 0 {
			out = append(out, math.Abs(diPlus[i]-diMinus[i])/sum*100)
		} else {
			out = append(out, 0)
		}
	}
	return out
}
