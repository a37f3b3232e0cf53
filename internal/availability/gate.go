// Package availability implements the per-pair trading circuit breaker.
// The orchestrator consults the gate before accepting an entry and feeds
// it every closed trade's ROI; the gate blocks a pair for a cooldown
// window when its recent outcomes look dangerous.
//
// Blocking policy:
//   - a single trade losing more than MaxSingleLossPercent,
//   - cumulative ROI over the rolling LossWindow below -MaxWindowLossPercent,
//   - MaxConsecutiveLosses losing trades in a row,
//   - an unconditional ForceBlock after any stop-loss close.
//
// Every trigger blocks the pair for BlockDuration. The time source is an
// injected closure so expiry is deterministic under a simulated clock.
package availability

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Config holds the gate thresholds. Zero values are replaced by defaults.
type Config struct {
	MaxSingleLossPercent float64       // default 1.0
	MaxWindowLossPercent float64       // default 0.5
	MaxConsecutiveLosses int           // default 3
	LossWindow           time.Duration // default 1h
	BlockDuration        time.Duration // default 1h
}

func (c Config) withDefaults() Config {
	if c.MaxSingleLossPercent == 0 {
		c.MaxSingleLossPercent = 1.0
	}
	if c.MaxWindowLossPercent == 0 {
		c.MaxWindowLossPercent = 0.5
	}
	if c.MaxConsecutiveLosses == 0 {
		c.MaxConsecutiveLosses = 3
	}
	if c.LossWindow == 0 {
		c.LossWindow = time.Hour
	}
	if c.BlockDuration == 0 {
		c.BlockDuration = time.Hour
	}
	return c
}

type tradeRecord struct {
	timestamp int64 // Unix ms
	roi       float64
}

type pairState struct {
	available   bool
	trades      []tradeRecord
	blockUntil  int64 // Unix ms, 0 = not blocked
	blockReason string
}

// Gate tracks per-pair outcome history and cooldowns. Safe for use from
// multiple goroutines; updates for a pair are serialized.
type Gate struct {
	cfg Config
	now func() int64 // Unix ms

	mu    sync.Mutex
	pairs map[string]*pairState
}

// New creates a Gate using the injected millisecond clock.
func New(cfg Config, now func() int64) *Gate {
	return &Gate{
		cfg:   cfg.withDefaults(),
		now:   now,
		pairs: make(map[string]*pairState),
	}
}

// Initialize registers a pair as available with empty history. Calling
// it again resets that pair's history and any active block.
func (g *Gate) Initialize(pair string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pairs[pair] = &pairState{available: true}
}

// IsAvailable reports whether the pair may open a new position. Unknown
// pairs are unavailable. An expired block is cleared on read.
func (g *Gate) IsAvailable(pair string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.pairs[pair]
	if !ok {
		return false
	}

	now := g.now()
	if state.blockUntil != 0 {
		if now < state.blockUntil {
			return false
		}
		state.available = true
		state.blockUntil = 0
		state.blockReason = ""
	}
	return state.available
}

// RecordOutcome registers a closed trade's ROI and re-evaluates the
// blocking conditions. No-op for unknown pairs.
func (g *Gate) RecordOutcome(pair string, roiPercent float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.pairs[pair]
	if !ok {
		return
	}

	now := g.now()
	state.trades = append(state.trades, tradeRecord{timestamp: now, roi: roiPercent})
	state.trades = pruneOlderThan(state.trades, now-g.cfg.LossWindow.Milliseconds())

	if roiPercent < -g.cfg.MaxSingleLossPercent {
		g.block(pair, state, fmt.Sprintf("single trade loss %.2f%% exceeded %.2f%% limit",
			roiPercent, g.cfg.MaxSingleLossPercent))
		return
	}

	var windowROI float64
	for _, tr := range state.trades {
		windowROI += tr.roi
	}
	if windowROI < -g.cfg.MaxWindowLossPercent {
		g.block(pair, state, fmt.Sprintf("cumulative loss %.2f%% over window exceeded %.2f%% limit",
			windowROI, g.cfg.MaxWindowLossPercent))
		return
	}

	if n := g.cfg.MaxConsecutiveLosses; len(state.trades) >= n {
		losing := true
		for _, tr := range state.trades[len(state.trades)-n:] {
			if tr.roi >= 0 {
				losing = false
				break
			}
		}
		if losing {
			g.block(pair, state, fmt.Sprintf("%d consecutive losing trades", n))
		}
	}
}

// ForceBlock blocks the pair unconditionally for the cooldown duration,
// regardless of its rolling statistics. Called after stop-loss closes.
func (g *Gate) ForceBlock(pair, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.pairs[pair]
	if !ok {
		return
	}
	g.block(pair, state, reason)
}

// BlockReason returns the active block reason, if any.
func (g *Gate) BlockReason(pair string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.pairs[pair]
	if !ok || state.blockUntil == 0 || g.now() >= state.blockUntil {
		return "", false
	}
	return state.blockReason, true
}

// block assumes g.mu is held.
func (g *Gate) block(pair string, state *pairState, reason string) {
	state.available = false
	state.blockUntil = g.now() + g.cfg.BlockDuration.Milliseconds()
	state.blockReason = reason
	log.Printf("[availability] pair %s blocked until %d: %s", pair, state.blockUntil, reason)
}

func pruneOlderThan(trades []tradeRecord, cutoff int64) []tradeRecord {
	kept := trades[:0]
	for _, tr := range trades {
		if tr.timestamp > cutoff {
			kept = append(kept, tr)
		}
	}
	return kept
}
