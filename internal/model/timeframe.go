package model

import "fmt"

// Timeframes supported by the candle store and the report builder,
// shortest first.
var Timeframes = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

var timeframeMS = map[string]int64{
	"1m":  60_000,
	"5m":  300_000,
	"15m": 900_000,
	"30m": 1_800_000,
	"1h":  3_600_000,
	"4h":  14_400_000,
	"1d":  86_400_000,
}

// TimeframeMS returns the duration of one candle of the given timeframe
// in milliseconds.
func TimeframeMS(tf string) (int64, error) {
	ms, ok := timeframeMS[tf]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	return ms, nil
}
