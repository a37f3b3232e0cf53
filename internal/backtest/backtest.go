package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"statarb-systemv1/internal/availability"
	"statarb-systemv1/internal/metrics"
	"statarb-systemv1/internal/model"
	"statarb-systemv1/internal/roi"
	"statarb-systemv1/internal/strategy"
)

// Config drives one backtest run over a set of pairs.
type Config struct {
	Pairs        []model.Pair
	StartTime    int64 // Unix ms, inclusive
	EndTime      int64 // Unix ms, inclusive
	BaseQuantity float64

	Strategy       strategy.Config
	Availability   availability.Config
	CommissionRate float64

	FetchBatchSize int           // trades per provider page
	RateRefresh    time.Duration // simulated interval between rate reloads
}

func (c Config) withDefaults() Config {
	if c.BaseQuantity == 0 {
		c.BaseQuantity = 1.0
	}
	if c.CommissionRate == 0 {
		c.CommissionRate = 0.001
	}
	if c.FetchBatchSize == 0 {
		c.FetchBatchSize = 1000
	}
	if c.RateRefresh == 0 {
		c.RateRefresh = time.Hour
	}
	return c
}

// Result is the outcome of replaying one pair.
type Result struct {
	Pair          model.Pair
	Trades        []model.CompleteTrade
	TicksReplayed int
}

// Runner replays historical trades through a fresh strategy instance
// per pair, simulating fills at signal prices and gating re-entries
// through the availability policy. All time the strategies and the
// gate observe comes from the simulated clock, so two runs over the
// same data produce identical ledgers.
type Runner struct {
	cfg     Config
	candles CandleSource
	trades  model.TradeProvider
	rates   model.RateSource
	metrics *metrics.Metrics

	clock Clock
	gate  *availability.Gate
}

func NewRunner(cfg Config, candles CandleSource, trades model.TradeProvider, rates model.RateSource, m *metrics.Metrics) *Runner {
	r := &Runner{
		cfg:     cfg.withDefaults(),
		candles: candles,
		trades:  trades,
		rates:   rates,
		metrics: m,
	}
	r.gate = availability.New(cfg.Availability, r.clock.Now)
	return r
}

// Run replays every configured pair in order and returns their ledgers.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	symbols := collectSymbols(r.cfg.Pairs)
	cache, err := buildTradeCache(ctx, r.trades, symbols, r.cfg.StartTime, r.cfg.EndTime, r.cfg.FetchBatchSize)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(r.cfg.Pairs))
	for _, pair := range r.cfg.Pairs {
		started := time.Now()
		res, err := r.runPair(ctx, pair, cache)
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", pair.Symbol(), err)
		}
		if r.metrics != nil {
			r.metrics.BacktestDuration.Observe(time.Since(started).Seconds())
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runPair(ctx context.Context, pair model.Pair, cache *tradeCache) (Result, error) {
	res := Result{Pair: pair}
	pairKey := pair.Symbol()
	symbolA := pair.AssetA.Symbol()
	symbolB := pair.AssetB.Symbol()

	r.clock.Reset(r.cfg.StartTime)
	r.gate.Initialize(pairKey)

	strat := strategy.New(r.cfg.Strategy, &historicalProvider{source: r.candles, clock: &r.clock})
	if err := strat.Start(ctx, pair.AssetA, pair.AssetB); err != nil {
		if errors.Is(err, strategy.ErrNoCandles) {
			log.Printf("[backtest] skipping %s: %v", pairKey, err)
			return res, nil
		}
		return res, err
	}
	defer strat.Stop()

	lastRateRefresh, err := r.refreshRates(ctx, strat)
	if err != nil {
		return res, err
	}
	rateRefreshMS := r.cfg.RateRefresh.Milliseconds()

	ticksA := cache.forSymbol(symbolA)
	ticksB := cache.forSymbol(symbolB)
	merged := mergeTicks(ticksA, ticksB)
	remainingA := len(ticksA)
	remainingB := len(ticksB)

	var openReason string

	for _, tick := range merged {
		switch tick.Symbol {
		case symbolA:
			remainingA--
		case symbolB:
			remainingB--
		}
		r.clock.Advance(tick.Timestamp)

		if r.clock.Now()-lastRateRefresh >= rateRefreshMS {
			lastRateRefresh, err = r.refreshRates(ctx, strat)
			if err != nil {
				return res, err
			}
		}

		sig := strat.OnTick(tick)
		res.TicksReplayed++
		if r.metrics != nil {
			r.metrics.TicksReplayed.Inc()
		}
		if sig == nil {
			continue
		}

		switch sig.Type {
		case model.SignalOpen:
			r.handleOpen(strat, sig, pairKey, remainingA, remainingB, &openReason)
		case model.SignalClose, model.SignalStopLoss:
			if err := r.handleExit(strat, sig, pair, openReason, &res); err != nil {
				log.Printf("[backtest] halting %s: %v", pairKey, err)
				strat.Stop()
				return res, nil
			}
		}
	}
	return res, nil
}

// handleOpen simulates entry at the signal prices, provided the pair is
// not blocked and both legs still have future trades to replay. A
// position that could never be closed would distort the ledger.
func (r *Runner) handleOpen(strat *strategy.Strategy, sig *model.Signal, pairKey string, remainingA, remainingB int, openReason *string) {
	if !r.gate.IsAvailable(pairKey) || remainingA == 0 || remainingB == 0 {
		strat.PositionEnterRejected()
		if r.metrics != nil {
			r.metrics.SignalsRejected.WithLabelValues(string(sig.Type)).Inc()
		}
		return
	}
	if sig.Beta == 0 {
		strat.PositionEnterRejected()
		return
	}
	pos := model.Position{
		Direction:  sig.Direction,
		QuantityA:  r.cfg.BaseQuantity,
		QuantityB:  r.cfg.BaseQuantity / math.Abs(sig.Beta),
		OpenPriceA: sig.LegA.Price,
		OpenPriceB: sig.LegB.Price,
		OpenTime:   r.clock.Now(),
	}
	*openReason = sig.Reason
	strat.PositionEnterAccepted(pos)
	if r.metrics != nil {
		r.metrics.SignalsEmitted.WithLabelValues(string(sig.Type)).Inc()
	}
}

// handleExit simulates the close at the signal prices and books the
// trade. A missing conversion rate is unrecoverable for the pair: the
// fill cannot be valued, so the caller stops the replay.
func (r *Runner) handleExit(strat *strategy.Strategy, sig *model.Signal, pair model.Pair, openReason string, res *Result) error {
	pos := strat.Position()
	if pos == nil {
		strat.PositionExitRejected()
		return nil
	}

	rates, err := r.rates.AssetPrices(context.Background(), r.clock.Now())
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	tradeROI, err := roi.Calculate(roi.Trade{
		Direction:   pos.Direction,
		AssetA:      pair.AssetA,
		AssetB:      pair.AssetB,
		QuantityA:   pos.QuantityA,
		QuantityB:   pos.QuantityB,
		OpenPriceA:  pos.OpenPriceA,
		OpenPriceB:  pos.OpenPriceB,
		ClosePriceA: sig.LegA.Price,
		ClosePriceB: sig.LegB.Price,
	}, rates, r.cfg.CommissionRate)
	if err != nil {
		strat.PositionExitRejected()
		return fmt.Errorf("value close: %w", err)
	}

	res.Trades = append(res.Trades, model.CompleteTrade{
		ID:          len(res.Trades) + 1,
		Direction:   pos.Direction,
		SymbolA:     pair.AssetA.Symbol(),
		SymbolB:     pair.AssetB.Symbol(),
		QuantityA:   pos.QuantityA,
		QuantityB:   pos.QuantityB,
		OpenPriceA:  pos.OpenPriceA,
		ClosePriceA: sig.LegA.Price,
		OpenPriceB:  pos.OpenPriceB,
		ClosePriceB: sig.LegB.Price,
		OpenTime:    pos.OpenTime,
		CloseTime:   r.clock.Now(),
		ROI:         tradeROI,
		OpenReason:  openReason,
		CloseReason: sig.Reason,
	})
	strat.PositionExitAccepted()

	pairKey := pair.Symbol()
	r.gate.RecordOutcome(pairKey, tradeROI)
	if sig.Type == model.SignalStopLoss {
		r.gate.ForceBlock(pairKey, sig.Reason)
		if r.metrics != nil {
			r.metrics.PairsBlocked.Inc()
		}
	}
	if r.metrics != nil {
		r.metrics.TradesCompleted.Inc()
	}
	return nil
}

func (r *Runner) refreshRates(ctx context.Context, strat *strategy.Strategy) (int64, error) {
	at := r.clock.Now()
	rates, err := r.rates.AssetPrices(ctx, at)
	if err != nil {
		return 0, fmt.Errorf("load rates: %w", err)
	}
	strat.SetAssetPrices(rates)
	return at, nil
}

// collectSymbols returns the distinct leg symbols of the pairs,
// preserving first-seen order.
func collectSymbols(pairs []model.Pair) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range pairs {
		for _, sym := range []string{p.AssetA.Symbol(), p.AssetB.Symbol()} {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	return out
}
