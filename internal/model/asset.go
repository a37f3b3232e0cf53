package model

// Asset identifies one tradeable spot market by its base and quote
// currencies, e.g. {BTC, USDT} -> "BTCUSDT".
type Asset struct {
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
}

// Symbol returns the Binance symbol for this asset.
func (a Asset) Symbol() string {
	return a.BaseAsset + a.QuoteAsset
}

// Pair is the two legs of a pairs trade. Leg A is the "driver" leg: the
// spread is priced as A - beta*B.
type Pair struct {
	AssetA Asset `json:"asset_a"`
	AssetB Asset `json:"asset_b"`
}

// Symbol returns a unique pair identifier, e.g. "BTCUSDT-ETHUSDT".
func (p Pair) Symbol() string {
	return p.AssetA.Symbol() + "-" + p.AssetB.Symbol()
}
