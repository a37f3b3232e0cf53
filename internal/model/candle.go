package model

import "encoding/json"

// Candle represents one OHLCV bar for a single symbol.
// OpenTime/CloseTime are Unix milliseconds; the interval is inclusive on
// both ends by Binance convention: a trade with timestamp <= CloseTime
// belongs to this candle.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Contains reports whether a trade at ts (ms) falls inside this candle.
func (c *Candle) Contains(ts int64) bool {
	return ts <= c.CloseTime
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close series from a candle slice.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}
