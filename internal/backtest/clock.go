package backtest

// Clock is the simulated wall clock driving a replay. It only ever
// moves forward: ticks arriving out of order cannot pull it backward.
type Clock struct {
	nowMS int64
}

func (c *Clock) Reset(startMS int64) { c.nowMS = startMS }

// Advance moves the clock to ts if ts is later.
func (c *Clock) Advance(ts int64) {
	if ts > c.nowMS {
		c.nowMS = ts
	}
}

// Now returns the simulated time in Unix milliseconds.
func (c *Clock) Now() int64 { return c.nowMS }
