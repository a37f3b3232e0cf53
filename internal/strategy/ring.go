package strategy

import "statarb-systemv1/internal/model"

// candleRing is a fixed-capacity rolling window of candles. Appending
// past capacity evicts the oldest candle in O(1); the last candle stays
// addressable for in-place mutation by the tick stream.
type candleRing struct {
	buf   []model.Candle
	start int
	count int
}

func newCandleRing(capacity int) *candleRing {
	if capacity < 1 {
		capacity = 1
	}
	return &candleRing{buf: make([]model.Candle, capacity)}
}

func (r *candleRing) Len() int { return r.count }

// Append adds a candle, evicting the oldest when full.
func (r *candleRing) Append(c model.Candle) {
	if r.count < len(r.buf) {
		r.buf[(r.start+r.count)%len(r.buf)] = c
		r.count++
		return
	}
	r.buf[r.start] = c
	r.start = (r.start + 1) % len(r.buf)
}

// Fill replaces the window contents with the tail of candles.
func (r *candleRing) Fill(candles []model.Candle) {
	r.start, r.count = 0, 0
	if len(candles) > len(r.buf) {
		candles = candles[len(candles)-len(r.buf):]
	}
	for _, c := range candles {
		r.Append(c)
	}
}

// Last returns a mutable pointer to the newest candle, or nil when empty.
func (r *candleRing) Last() *model.Candle {
	if r.count == 0 {
		return nil
	}
	return &r.buf[(r.start+r.count-1)%len(r.buf)]
}

// LastN copies the newest n candles (fewer if the window is shorter),
// ascending by time.
func (r *candleRing) LastN(n int) []model.Candle {
	if n > r.count {
		n = r.count
	}
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+r.count-n+i)%len(r.buf)]
	}
	return out
}

// Closes returns the close prices of the newest n candles, ascending.
func (r *candleRing) Closes(n int) []float64 {
	if n > r.count {
		n = r.count
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+r.count-n+i)%len(r.buf)].Close
	}
	return out
}

func (r *candleRing) Reset() {
	r.start, r.count = 0, 0
}
