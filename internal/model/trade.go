package model

// CompleteTrade is an immutable record of one closed pairs trade,
// appended to the backtest ledger when a close/stop-loss is accepted.
type CompleteTrade struct {
	ID          int       `json:"id"`
	Direction   Direction `json:"direction"`
	SymbolA     string    `json:"symbol_a"`
	SymbolB     string    `json:"symbol_b"`
	QuantityA   float64   `json:"quantity_a"`
	QuantityB   float64   `json:"quantity_b"`
	OpenPriceA  float64   `json:"open_price_a"`
	ClosePriceA float64   `json:"close_price_a"`
	OpenPriceB  float64   `json:"open_price_b"`
	ClosePriceB float64   `json:"close_price_b"`
	OpenTime    int64     `json:"open_time"`
	CloseTime   int64     `json:"close_time"`
	ROI         float64   `json:"roi"`
	OpenReason  string    `json:"open_reason"`
	CloseReason string    `json:"close_reason"`
}
