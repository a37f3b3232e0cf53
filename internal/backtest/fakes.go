package backtest

import (
	"context"

	"statarb-systemv1/internal/model"
)

// CandleSource serves stored candle history ending at a point in time.
// The SQLite store satisfies this.
type CandleSource interface {
	// CandlesBefore returns up to limit candles with CloseTime < before,
	// ascending by OpenTime.
	CandlesBefore(ctx context.Context, symbol, timeframe string, limit int, before int64) ([]model.Candle, error)
}

// historicalProvider adapts a CandleSource into the strategy's candle
// provider, pinned to the simulated clock so a strategy started
// mid-replay only ever sees history that existed at that moment.
type historicalProvider struct {
	source CandleSource
	clock  *Clock
}

func (h *historicalProvider) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]model.Candle, error) {
	return h.source.CandlesBefore(ctx, symbol, timeframe, limit, h.clock.Now())
}
