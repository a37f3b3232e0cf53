package backtest

import (
	"context"
	"math"
	"reflect"
	"strings"
	"testing"

	"statarb-systemv1/internal/model"
	"statarb-systemv1/internal/strategy"
)

type fakeCandleSource struct {
	candles map[string][]model.Candle
}

func (f *fakeCandleSource) CandlesBefore(ctx context.Context, symbol, timeframe string, limit int, before int64) ([]model.Candle, error) {
	var out []model.Candle
	for _, c := range f.candles[symbol] {
		if c.CloseTime < before {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeTradeProvider struct {
	trades map[string][]model.Tick
	calls  map[string]int
}

func (f *fakeTradeProvider) FetchTrades(ctx context.Context, symbol string, limit int, q model.TradeQuery) ([]model.Tick, error) {
	if f.calls != nil {
		f.calls[symbol]++
	}
	var out []model.Tick
	for _, t := range f.trades[symbol] {
		if q.FromID > 0 {
			if t.TradeID < q.FromID {
				continue
			}
		} else if t.Timestamp < q.StartTime || t.Timestamp > q.EndTime {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeRateSource struct {
	prices map[string]float64
	err    error
}

func (f *fakeRateSource) AssetPrices(ctx context.Context, at int64) (map[string]float64, error) {
	return f.prices, f.err
}

var (
	legA = model.Asset{BaseAsset: "ETH", QuoteAsset: "USDT"}
	legB = model.Asset{BaseAsset: "BTC", QuoteAsset: "USDT"}
)

// flatHistory builds 60 one-minute bars with a steady close inside a
// wide fixed envelope, so the trend filter reads weak whatever the
// closes later do.
func flatHistory(close, high, low float64) []model.Candle {
	out := make([]model.Candle, 60)
	for i := range out {
		out[i] = model.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      close,
			High:      high,
			Low:       low,
			Close:     close,
		}
	}
	return out
}

func replayConfig() Config {
	return Config{
		Pairs:        []model.Pair{{AssetA: legA, AssetB: legB}},
		StartTime:    3_600_000,
		EndTime:      3_700_000,
		BaseQuantity: 1,
		Strategy: strategy.Config{
			Timeframe:     "1m",
			HistorySize:   100,
			BetaWindow:    60,
			ZScoreWindow:  60,
			ADXWindow:     60,
			EntryZScore:   3.5,
			BlowOutZScore: 100,
		},
	}
}

// replayFixture sets up one pair whose legs move in exact proportion:
// both legs drop 5% together, dislocating the spread versus its flat
// window, then leg B snaps above its mean so the position closes.
func replayFixture() (*fakeCandleSource, *fakeTradeProvider, *fakeRateSource) {
	candles := &fakeCandleSource{candles: map[string][]model.Candle{
		legA.Symbol(): flatHistory(50, 55, 45),
		legB.Symbol(): flatHistory(100, 110, 90),
	}}
	trades := &fakeTradeProvider{trades: map[string][]model.Tick{
		legA.Symbol(): {
			{Symbol: legA.Symbol(), TradeID: 1, Price: 47.5, Quantity: 1, Timestamp: 3_601_000},
			{Symbol: legA.Symbol(), TradeID: 2, Price: 51, Quantity: 1, Timestamp: 3_661_000},
		},
		legB.Symbol(): {
			{Symbol: legB.Symbol(), TradeID: 1, Price: 95, Quantity: 1, Timestamp: 3_602_000},
			{Symbol: legB.Symbol(), TradeID: 2, Price: 102, Quantity: 1, Timestamp: 3_660_500},
		},
	}}
	rates := &fakeRateSource{prices: map[string]float64{}}
	return candles, trades, rates
}

func TestRunReplaysOneRoundTrip(t *testing.T) {
	candles, trades, rates := replayFixture()
	runner := NewRunner(replayConfig(), candles, trades, rates, nil)

	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	res := results[0]
	if res.TicksReplayed != 4 {
		t.Fatalf("ticks = %d, want 4", res.TicksReplayed)
	}
	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}

	trade := res.Trades[0]
	if trade.Direction != model.DirectionSellBuy {
		t.Fatalf("direction = %v, want sell-buy", trade.Direction)
	}
	if trade.OpenPriceA != 47.5 || trade.OpenPriceB != 95 {
		t.Fatalf("open prices = %v/%v, want 47.5/95", trade.OpenPriceA, trade.OpenPriceB)
	}
	if trade.QuantityA != 1 || trade.QuantityB != 1 {
		t.Fatalf("quantities = %v/%v, want 1/1", trade.QuantityA, trade.QuantityB)
	}
	// Sold A at 47.5, bought B at 95; B closed at 102 while A was
	// flat: pnl 7 on 142.5 notional less 0.1% commission on both
	// round-trip legs.
	wantROI := (7 - (142.5+149.5)*0.001) / 142.5 * 100
	if math.Abs(trade.ROI-wantROI) > 1e-9 {
		t.Fatalf("roi = %v, want %v", trade.ROI, wantROI)
	}
	if trade.OpenTime < 3_600_000 || trade.CloseTime < trade.OpenTime {
		t.Fatalf("times = %d..%d", trade.OpenTime, trade.CloseTime)
	}
	if trade.OpenReason == "" || trade.CloseReason == "" {
		t.Fatalf("reasons = %q / %q, want both set", trade.OpenReason, trade.CloseReason)
	}
	if trade.ID != 1 {
		t.Fatalf("id = %d, want 1", trade.ID)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	candles, trades, rates := replayFixture()
	runner := NewRunner(replayConfig(), candles, trades, rates, nil)

	first, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("runs diverged:\n%+v\n%+v", first, second)
	}
}

func TestRunRejectsOpenWhenLegExhausted(t *testing.T) {
	candles, trades, rates := replayFixture()
	// Drop the second tick of each leg: the open signal still fires,
	// but filling it would leave a position with no future trades to
	// close against.
	trades.trades[legA.Symbol()] = trades.trades[legA.Symbol()][:1]
	trades.trades[legB.Symbol()] = trades.trades[legB.Symbol()][:1]

	runner := NewRunner(replayConfig(), candles, trades, rates, nil)
	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(results[0].Trades); got != 0 {
		t.Fatalf("trades = %d, want 0", got)
	}
	if results[0].TicksReplayed != 2 {
		t.Fatalf("ticks = %d, want 2", results[0].TicksReplayed)
	}
}

func TestRunSkipsPairWithoutHistory(t *testing.T) {
	candles, trades, rates := replayFixture()
	cfg := replayConfig()
	ghostA := model.Asset{BaseAsset: "SOL", QuoteAsset: "USDT"}
	ghostB := model.Asset{BaseAsset: "AVAX", QuoteAsset: "USDT"}
	cfg.Pairs = append(cfg.Pairs, model.Pair{AssetA: ghostA, AssetB: ghostB})

	runner := NewRunner(cfg, candles, trades, rates, nil)
	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if len(results[0].Trades) != 1 {
		t.Fatalf("first pair trades = %d, want 1", len(results[0].Trades))
	}
	if results[1].TicksReplayed != 0 || len(results[1].Trades) != 0 {
		t.Fatalf("skipped pair replayed %d ticks, %d trades",
			results[1].TicksReplayed, len(results[1].Trades))
	}
}

func TestRunFailsWhenRatesUnavailable(t *testing.T) {
	candles, trades, _ := replayFixture()
	rates := &fakeRateSource{err: context.DeadlineExceeded}

	runner := NewRunner(replayConfig(), candles, trades, rates, nil)
	if _, err := runner.Run(context.Background()); err == nil || !strings.Contains(err.Error(), "load rates") {
		t.Fatalf("err = %v, want load rates failure", err)
	}
}

func TestBuildTradeCachePaginates(t *testing.T) {
	symbol := legA.Symbol()
	provider := &fakeTradeProvider{
		calls: map[string]int{},
		trades: map[string][]model.Tick{
			symbol: {
				{Symbol: symbol, TradeID: 1, Timestamp: 100},
				{Symbol: symbol, TradeID: 2, Timestamp: 200},
				{Symbol: symbol, TradeID: 3, Timestamp: 300},
				{Symbol: symbol, TradeID: 4, Timestamp: 400},
				{Symbol: symbol, TradeID: 5, Timestamp: 500},
			},
		},
	}

	cache, err := buildTradeCache(context.Background(), provider, []string{symbol}, 100, 1_000, 2)
	if err != nil {
		t.Fatalf("buildTradeCache: %v", err)
	}
	got := cache.forSymbol(symbol)
	if len(got) != 5 {
		t.Fatalf("cached = %d, want 5", len(got))
	}
	for i, tick := range got {
		if tick.TradeID != int64(i+1) {
			t.Fatalf("cached[%d].TradeID = %d, want %d", i, tick.TradeID, i+1)
		}
	}
	if provider.calls[symbol] < 3 {
		t.Fatalf("calls = %d, want pagination", provider.calls[symbol])
	}
}

func TestBuildTradeCacheStopsAtEndTime(t *testing.T) {
	symbol := legB.Symbol()
	provider := &fakeTradeProvider{
		trades: map[string][]model.Tick{
			symbol: {
				{Symbol: symbol, TradeID: 1, Timestamp: 100},
				{Symbol: symbol, TradeID: 2, Timestamp: 200},
				{Symbol: symbol, TradeID: 3, Timestamp: 900}, // beyond the window
				{Symbol: symbol, TradeID: 4, Timestamp: 950},
			},
		},
	}

	// endMS filtering: the provider's first page is time-bounded, but a
	// FromID continuation page is not, so the fetcher must cut off the
	// overshoot itself.
	cache, err := buildTradeCache(context.Background(), provider, []string{symbol}, 100, 250, 2)
	if err != nil {
		t.Fatalf("buildTradeCache: %v", err)
	}
	got := cache.forSymbol(symbol)
	if len(got) != 2 {
		t.Fatalf("cached = %d, want 2", len(got))
	}
	if got[len(got)-1].TradeID != 2 {
		t.Fatalf("last id = %d, want 2", got[len(got)-1].TradeID)
	}
}
