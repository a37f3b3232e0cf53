package model

// Tick represents a single executed trade from the Binance spot feed
// (live websocket or historical REST pagination).
type Tick struct {
	Symbol       string  `json:"symbol"`
	TradeID      int64   `json:"trade_id"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	Timestamp    int64   `json:"timestamp"` // Unix ms
	IsBuyerMaker bool    `json:"is_buyer_maker"`
	FirstTradeID int64   `json:"first_trade_id"`
	LastTradeID  int64   `json:"last_trade_id"`
}

// TradeQuery selects a window of historical trades. FromID takes
// precedence over StartTime; it is the pagination cursor.
type TradeQuery struct {
	FromID    int64
	StartTime int64
	EndTime   int64
}
