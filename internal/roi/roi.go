// Package roi converts a closed two-leg position into a single
// percentage return on the capital locked at entry, net of exchange
// commission, normalized into the reference currency (USDT).
package roi

import (
	"errors"
	"fmt"
	"math"

	"statarb-systemv1/internal/model"
)

// ReferenceCurrency is the currency all PnL and turnover are normalized
// into before netting.
const ReferenceCurrency = "USDT"

// ErrRateNotFound is returned when neither a direct nor an inverse spot
// rate exists for a leg's quote currency. ROI must never be silently
// approximated with a substitute rate.
var ErrRateNotFound = errors.New("rate not found")

// Trade holds everything needed to settle a closed pairs position: both
// legs' asset definitions, quantities, and entry/exit prices.
type Trade struct {
	Direction   model.Direction
	AssetA      model.Asset
	AssetB      model.Asset
	QuantityA   float64
	QuantityB   float64
	OpenPriceA  float64
	OpenPriceB  float64
	ClosePriceA float64
	ClosePriceB float64
}

// Calculate returns the trade's ROI percent.
//
// Each leg's PnL is computed in its own quote currency — (close-open)*qty
// for the bought leg, (open-close)*qty for the sold leg — then PnL and
// open/close notionals are converted to USDT via rates ("ETHBTC" PnL uses
// the "BTCUSDT" rate, falling back to 1/"USDTBTC"). Commission is the
// combined open+close turnover times commissionRate, so a flat trade
// still settles slightly negative.
func Calculate(t Trade, rates map[string]float64, commissionRate float64) (float64, error) {
	var pnlA, pnlB float64
	if t.Direction == model.DirectionBuySell {
		pnlA = (t.ClosePriceA - t.OpenPriceA) * t.QuantityA
		pnlB = (t.OpenPriceB - t.ClosePriceB) * t.QuantityB
	} else {
		pnlA = (t.OpenPriceA - t.ClosePriceA) * t.QuantityA
		pnlB = (t.ClosePriceB - t.OpenPriceB) * t.QuantityB
	}

	quoteA := t.AssetA.QuoteAsset
	quoteB := t.AssetB.QuoteAsset

	pnlARef, err := toReference(pnlA, quoteA, rates)
	if err != nil {
		return 0, err
	}
	pnlBRef, err := toReference(pnlB, quoteB, rates)
	if err != nil {
		return 0, err
	}

	openA, err := toReference(t.QuantityA*t.OpenPriceA, quoteA, rates)
	if err != nil {
		return 0, err
	}
	openB, err := toReference(t.QuantityB*t.OpenPriceB, quoteB, rates)
	if err != nil {
		return 0, err
	}
	closeA, err := toReference(t.QuantityA*t.ClosePriceA, quoteA, rates)
	if err != nil {
		return 0, err
	}
	closeB, err := toReference(t.QuantityB*t.ClosePriceB, quoteB, rates)
	if err != nil {
		return 0, err
	}

	turnoverOpen := math.Abs(openA) + math.Abs(openB)
	turnoverClose := math.Abs(closeA) + math.Abs(closeB)

	commission := (turnoverOpen + turnoverClose) * commissionRate
	netPnl := pnlARef + pnlBRef - commission

	return netPnl / turnoverOpen * 100, nil
}

// toReference converts a quote-currency value into the reference
// currency, preferring the direct rate and falling back to the inverse.
func toReference(value float64, quote string, rates map[string]float64) (float64, error) {
	if quote == ReferenceCurrency {
		return value, nil
	}
	if rate, ok := rates[quote+ReferenceCurrency]; ok {
		return value * rate, nil
	}
	if rate, ok := rates[ReferenceCurrency+quote]; ok && rate != 0 {
		return value / rate, nil
	}
	return 0, fmt.Errorf("price for %s not found: %w", quote, ErrRateNotFound)
}
