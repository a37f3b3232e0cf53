package strategy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"statarb-systemv1/internal/indicator"
	"statarb-systemv1/internal/model"
	"statarb-systemv1/internal/roi"
)

// ErrNoCandles is returned by Start when the data provider has no
// history for one of the legs.
var ErrNoCandles = errors.New("no candles for symbol")

// State is the engine's position in its trading cycle.
type State string

const (
	StateStopped          State = "stopped"
	StateScanningForEntry State = "scanningForEntry"
	StateWaitingForEntry  State = "waitingForEntry"
	StateScanningForExit  State = "scanningForExit"
	StateWaitingForExit   State = "waitingForExit"
	StateSuspended        State = "suspended"
)

// Config tunes a pair strategy instance.
type Config struct {
	Timeframe      string
	HistorySize    int
	BetaWindow     int
	ZScoreWindow   int
	ADXWindow      int
	ADXPeriod      int
	EntryZScore    float64
	ExitZScore     float64
	BlowOutZScore  float64
	CommissionRate float64
	StopLoss       StopLossConfig
}

func (c Config) withDefaults() Config {
	if c.Timeframe == "" {
		c.Timeframe = "1m"
	}
	if c.HistorySize == 0 {
		c.HistorySize = 1440
	}
	if c.BetaWindow == 0 {
		c.BetaWindow = 60
	}
	if c.ZScoreWindow == 0 {
		c.ZScoreWindow = 60
	}
	if c.ADXWindow == 0 {
		c.ADXWindow = 720
	}
	if c.ADXPeriod == 0 {
		c.ADXPeriod = indicator.DefaultADXPeriod
	}
	if c.EntryZScore == 0 {
		c.EntryZScore = 3.0
	}
	// ExitZScore defaults to 0: exit on mean reversion.
	if c.BlowOutZScore == 0 {
		c.BlowOutZScore = 5.0
	}
	if c.CommissionRate == 0 {
		c.CommissionRate = 0.001
	}
	c.StopLoss = c.StopLoss.withDefaults()
	return c
}

// Strategy runs the pairs-trading decision cycle for a single pair. It
// is deliberately passive: OnTick inspects the market and may return a
// signal, and the caller reports back through the accepted/rejected
// callbacks once it has acted (or failed to act) on that signal.
type Strategy struct {
	cfg      Config
	provider model.DataProvider

	assetA model.Asset
	assetB model.Asset
	tfMS   int64

	// stateMu guards state for readers outside the tick goroutine
	// (the status API); all writes happen on the tick goroutine.
	stateMu  sync.RWMutex
	state    State
	candlesA *candleRing
	candlesB *candleRing

	position    *model.Position
	pending     *model.Signal
	assetPrices map[string]float64
}

func New(cfg Config, provider model.DataProvider) *Strategy {
	return &Strategy{
		cfg:      cfg.withDefaults(),
		provider: provider,
		state:    StateStopped,
	}
}

// Start loads candle history for both legs and arms the strategy.
func (s *Strategy) Start(ctx context.Context, assetA, assetB model.Asset) error {
	cfg := s.cfg
	tfMS, err := model.TimeframeMS(cfg.Timeframe)
	if err != nil {
		return err
	}

	candlesA, err := s.provider.FetchCandles(ctx, assetA.Symbol(), cfg.Timeframe, cfg.HistorySize)
	if err != nil {
		return fmt.Errorf("fetch candles %s: %w", assetA.Symbol(), err)
	}
	candlesB, err := s.provider.FetchCandles(ctx, assetB.Symbol(), cfg.Timeframe, cfg.HistorySize)
	if err != nil {
		return fmt.Errorf("fetch candles %s: %w", assetB.Symbol(), err)
	}
	if len(candlesA) == 0 {
		return fmt.Errorf("%s: %w", assetA.Symbol(), ErrNoCandles)
	}
	if len(candlesB) == 0 {
		return fmt.Errorf("%s: %w", assetB.Symbol(), ErrNoCandles)
	}

	s.assetA = assetA
	s.assetB = assetB
	s.tfMS = tfMS
	s.candlesA = newCandleRing(cfg.HistorySize)
	s.candlesB = newCandleRing(cfg.HistorySize)
	s.candlesA.Fill(candlesA)
	s.candlesB.Fill(candlesB)
	s.position = nil
	s.pending = nil
	s.setState(StateScanningForEntry)

	log.Printf("[strategy] started pair=%s-%s candlesA=%d candlesB=%d",
		assetA.Symbol(), assetB.Symbol(), len(candlesA), len(candlesB))
	return nil
}

// Stop halts the cycle. Safe to call repeatedly.
func (s *Strategy) Stop() {
	s.setState(StateStopped)
	s.pending = nil
}

// Suspend parks the strategy without discarding its candle history.
func (s *Strategy) Suspend() {
	if s.state != StateStopped {
		s.setState(StateSuspended)
		s.pending = nil
	}
}

// Resume returns a suspended strategy to scanning.
func (s *Strategy) Resume() {
	if s.state != StateSuspended {
		return
	}
	if s.position != nil {
		s.setState(StateScanningForExit)
	} else {
		s.setState(StateScanningForEntry)
	}
}

func (s *Strategy) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Strategy) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Position returns the currently held position, or nil.
func (s *Strategy) Position() *model.Position { return s.position }

// SetAssetPrices refreshes the quote-to-reference conversion rates used
// for ROI during exit scanning.
func (s *Strategy) SetAssetPrices(prices map[string]float64) {
	s.assetPrices = prices
}

// PositionEnterAccepted confirms the pending open signal was executed.
func (s *Strategy) PositionEnterAccepted(p model.Position) {
	if s.state != StateWaitingForEntry {
		return
	}
	pos := p
	s.position = &pos
	s.pending = nil
	s.setState(StateScanningForExit)
}

// PositionEnterRejected drops the pending open signal.
func (s *Strategy) PositionEnterRejected() {
	if s.state != StateWaitingForEntry {
		return
	}
	s.pending = nil
	s.setState(StateScanningForEntry)
}

// PositionExitAccepted confirms the pending close signal was executed.
func (s *Strategy) PositionExitAccepted() {
	if s.state != StateWaitingForExit {
		return
	}
	s.position = nil
	s.pending = nil
	s.setState(StateScanningForEntry)
}

// PositionExitRejected keeps the position and resumes exit scanning.
func (s *Strategy) PositionExitRejected() {
	if s.state != StateWaitingForExit {
		return
	}
	s.pending = nil
	s.setState(StateScanningForExit)
}

// OnTick feeds one trade into the strategy and returns a signal when
// the current state calls for one. A panic inside the analysis is
// contained to the tick.
func (s *Strategy) OnTick(tick model.Tick) (sig *model.Signal) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[strategy] recovered on tick %s@%d: %v", tick.Symbol, tick.Timestamp, r)
			sig = nil
		}
	}()

	switch tick.Symbol {
	case s.assetA.Symbol():
		s.updateCandle(s.candlesA, tick)
	case s.assetB.Symbol():
		s.updateCandle(s.candlesB, tick)
	default:
		return nil
	}

	switch s.state {
	case StateScanningForEntry:
		return s.analyzeEntry()
	case StateScanningForExit:
		return s.analyzeExit()
	default:
		// waiting and suspended states only accumulate candles
		return nil
	}
}

// updateCandle folds a tick into the last candle, appending synthetic
// candles to bridge any gap since the last close.
func (s *Strategy) updateCandle(ring *candleRing, tick model.Tick) {
	last := ring.Last()
	if last == nil {
		return
	}
	for tick.Timestamp > last.CloseTime {
		openTime := last.CloseTime + 1
		ring.Append(model.Candle{
			OpenTime:  openTime,
			CloseTime: openTime + s.tfMS - 1,
			Open:      last.Close,
			High:      last.Close,
			Low:       last.Close,
			Close:     last.Close,
			Volume:    0,
		})
		last = ring.Last()
	}
	if tick.Timestamp < last.OpenTime {
		return // stale tick
	}
	last.Close = tick.Price
	if tick.Price > last.High {
		last.High = tick.Price
	}
	if tick.Price < last.Low {
		last.Low = tick.Price
	}
	last.Volume += tick.Quantity
}

func (s *Strategy) analyzeEntry() *model.Signal {
	cfg := s.cfg
	pricesA := s.candlesA.Closes(cfg.BetaWindow)
	pricesB := s.candlesB.Closes(cfg.BetaWindow)

	beta, ok := indicator.Beta(pricesA, pricesB)
	if !ok {
		return nil
	}
	z, ok := indicator.SpreadZScore(
		s.candlesA.Closes(cfg.ZScoreWindow),
		s.candlesB.Closes(cfg.ZScoreWindow),
		beta,
	)
	if !ok {
		return nil
	}
	if math.Abs(z) < cfg.EntryZScore || math.Abs(z) >= cfg.BlowOutZScore {
		return nil
	}
	if !s.bothTrendsWeak() {
		return nil
	}

	lastA := s.candlesA.Last()
	lastB := s.candlesB.Last()

	var sig model.Signal
	if z > 0 {
		// spread rich: sell A, buy B
		sig = model.Signal{
			Type:      model.SignalOpen,
			Direction: model.DirectionSellBuy,
			LegA:      model.SignalLeg{Action: model.ActionSell, Price: lastA.Close},
			LegB:      model.SignalLeg{Action: model.ActionBuy, Price: lastB.Close},
			Beta:      beta,
			Reason:    fmt.Sprintf("zscore %.2f above entry threshold", z),
		}
	} else {
		sig = model.Signal{
			Type:      model.SignalOpen,
			Direction: model.DirectionBuySell,
			LegA:      model.SignalLeg{Action: model.ActionBuy, Price: lastA.Close},
			LegB:      model.SignalLeg{Action: model.ActionSell, Price: lastB.Close},
			Beta:      beta,
			Reason:    fmt.Sprintf("zscore %.2f below entry threshold", z),
		}
	}
	s.pending = &sig
	s.setState(StateWaitingForEntry)
	return &sig
}

func (s *Strategy) bothTrendsWeak() bool {
	cfg := s.cfg
	adxA, okA := indicator.ADX(s.candlesA.LastN(cfg.ADXWindow), cfg.ADXPeriod)
	adxB, okB := indicator.ADX(s.candlesB.LastN(cfg.ADXWindow), cfg.ADXPeriod)
	if !okA || !okB {
		return false
	}
	return indicator.Strength(adxA) == indicator.TrendWeak &&
		indicator.Strength(adxB) == indicator.TrendWeak
}

func (s *Strategy) analyzeExit() *model.Signal {
	if s.position == nil {
		return nil
	}
	cfg := s.cfg
	lastA := s.candlesA.Last()
	lastB := s.candlesB.Last()

	currentROI, err := s.currentROI(lastA.Close, lastB.Close)
	if err != nil {
		log.Printf("[strategy] roi unavailable for %s-%s: %v", s.assetA.Symbol(), s.assetB.Symbol(), err)
		return nil
	}

	beta, ok := indicator.Beta(
		s.candlesA.Closes(cfg.BetaWindow),
		s.candlesB.Closes(cfg.BetaWindow),
	)
	if !ok {
		log.Printf("[strategy] beta unavailable for %s-%s, holding position", s.assetA.Symbol(), s.assetB.Symbol())
		return nil
	}

	spread := indicator.Spread(
		s.candlesA.Closes(cfg.StopLoss.VolatilityWindow),
		s.candlesB.Closes(cfg.StopLoss.VolatilityWindow),
		beta,
	)
	stop := dynamicStopLoss(spread, cfg.StopLoss)
	if currentROI <= -stop {
		return s.emitExit(model.SignalStopLoss,
			fmt.Sprintf("roi %.2f%% breached stop %.2f%%", currentROI, stop))
	}

	z, ok := indicator.SpreadZScore(
		s.candlesA.Closes(cfg.ZScoreWindow),
		s.candlesB.Closes(cfg.ZScoreWindow),
		beta,
	)
	if !ok {
		return nil
	}
	if s.blowOutConditionMet(z) {
		return s.emitExit(model.SignalStopLoss,
			fmt.Sprintf("zscore %.2f blew past %.2f", z, cfg.BlowOutZScore))
	}
	if s.exitConditionMet(z) {
		return s.emitExit(model.SignalClose,
			fmt.Sprintf("zscore %.2f reverted, roi %.2f%%", z, currentROI))
	}
	return nil
}

// exitConditionMet checks whether the spread has reverted through the
// exit threshold in the direction the position profits from.
func (s *Strategy) exitConditionMet(z float64) bool {
	switch s.position.Direction {
	case model.DirectionSellBuy:
		return z <= s.cfg.ExitZScore
	case model.DirectionBuySell:
		return z >= -s.cfg.ExitZScore
	default:
		return false
	}
}

// blowOutConditionMet checks whether the spread has dislocated further
// against the position, past the blow-out threshold. A spread that
// overshoots through the mean instead has already met the exit
// condition and closes cleanly.
func (s *Strategy) blowOutConditionMet(z float64) bool {
	switch s.position.Direction {
	case model.DirectionSellBuy:
		return z >= s.cfg.BlowOutZScore
	case model.DirectionBuySell:
		return z <= -s.cfg.BlowOutZScore
	default:
		return false
	}
}

func (s *Strategy) emitExit(typ model.SignalType, reason string) *model.Signal {
	var legA, legB model.SignalLeg
	lastA := s.candlesA.Last()
	lastB := s.candlesB.Last()
	if s.position.Direction == model.DirectionSellBuy {
		legA = model.SignalLeg{Action: model.ActionBuy, Price: lastA.Close}
		legB = model.SignalLeg{Action: model.ActionSell, Price: lastB.Close}
	} else {
		legA = model.SignalLeg{Action: model.ActionSell, Price: lastA.Close}
		legB = model.SignalLeg{Action: model.ActionBuy, Price: lastB.Close}
	}
	sig := model.Signal{
		Type:      typ,
		Direction: s.position.Direction,
		LegA:      legA,
		LegB:      legB,
		Reason:    reason,
	}
	s.pending = &sig
	s.setState(StateWaitingForExit)
	return &sig
}

// currentROI marks the open position to the latest closes.
func (s *Strategy) currentROI(closeA, closeB float64) (float64, error) {
	p := s.position
	trade := roi.Trade{
		Direction:   p.Direction,
		AssetA:      s.assetA,
		AssetB:      s.assetB,
		QuantityA:   p.QuantityA,
		QuantityB:   p.QuantityB,
		OpenPriceA:  p.OpenPriceA,
		OpenPriceB:  p.OpenPriceB,
		ClosePriceA: closeA,
		ClosePriceB: closeB,
	}
	return roi.Calculate(trade, s.assetPrices, s.cfg.CommissionRate)
}
