package model

import "context"

// ── Provider Port Interfaces ──
// These interfaces decouple the decision engine from its data collaborators
// (Binance REST/websocket clients, SQLite history, backtest fakes). Each
// concrete provider satisfies one or more of these.

// DataProvider serves historical candles, ascending by OpenTime. In live
// trading it fronts the exchange REST API; in a backtest it serves candles
// as of the simulated clock.
type DataProvider interface {
	// FetchCandles returns up to limit candles for symbol/timeframe,
	// ascending by OpenTime.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}

// TradeProvider serves historical trades, ascending by timestamp,
// paginated by trade id continuation via TradeQuery.FromID.
type TradeProvider interface {
	FetchTrades(ctx context.Context, symbol string, limit int, q TradeQuery) ([]Tick, error)
}

// RateSource supplies the spot exchange-rate map used to normalize ROI
// into the reference currency. Keys are concatenated symbols
// ("ETHUSDT" -> price). at is the point in time (Unix ms) the rates
// should reflect; live sources may ignore it.
type RateSource interface {
	AssetPrices(ctx context.Context, at int64) (map[string]float64, error)
}
