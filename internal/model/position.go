package model

// Direction of a pairs position. BuySell means leg A was bought and leg
// B sold; SellBuy is the reverse.
type Direction string

const (
	DirectionBuySell Direction = "buy-sell"
	DirectionSellBuy Direction = "sell-buy"
)

// Position is an open two-leg position. It exists only between an
// accepted open signal and the next accepted close/stop-loss, and is
// owned exclusively by the pair's strategy instance.
type Position struct {
	Direction  Direction `json:"direction"`
	QuantityA  float64   `json:"quantity_a"`
	QuantityB  float64   `json:"quantity_b"`
	OpenPriceA float64   `json:"open_price_a"`
	OpenPriceB float64   `json:"open_price_b"`
	OpenTime   int64     `json:"open_time"` // Unix ms
}
