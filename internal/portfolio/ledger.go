// Package portfolio tracks open pair positions and the realized outcome
// of completed round trips.
//
// It keeps a thread-safe view suitable for the live engine, where the
// trading loop writes and the status API reads concurrently.
package portfolio

import (
	"sync"

	"statarb-systemv1/internal/model"
)

// Ledger aggregates positions and completed trades across pairs.
type Ledger struct {
	mu     sync.RWMutex
	open   map[string]model.Position
	trades []model.CompleteTrade

	totalROI float64
	wins     int
	losses   int

	peakROI     float64
	maxDrawdown float64
}

func New() *Ledger {
	return &Ledger{
		open:   make(map[string]model.Position),
		trades: make([]model.CompleteTrade, 0, 128),
	}
}

// PositionOpened records a filled entry for the pair.
func (l *Ledger) PositionOpened(pair string, pos model.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open[pair] = pos
}

// PositionClosed books the round trip and clears the open position.
func (l *Ledger) PositionClosed(pair string, trade model.CompleteTrade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.open, pair)
	l.trades = append(l.trades, trade)

	if trade.ROI >= 0 {
		l.wins++
	} else {
		l.losses++
	}
	l.totalROI += trade.ROI
	if l.totalROI > l.peakROI {
		l.peakROI = l.totalROI
	}
	if dd := l.peakROI - l.totalROI; dd > l.maxDrawdown {
		l.maxDrawdown = dd
	}
}

// Position returns the open position for the pair, if any.
func (l *Ledger) Position(pair string) (model.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.open[pair]
	return pos, ok
}

// OpenPositions returns a snapshot of the open positions by pair.
func (l *Ledger) OpenPositions() map[string]model.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]model.Position, len(l.open))
	for k, v := range l.open {
		out[k] = v
	}
	return out
}

// Trades returns a snapshot of all completed trades in booking order.
func (l *Ledger) Trades() []model.CompleteTrade {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := make([]model.CompleteTrade, len(l.trades))
	copy(cp, l.trades)
	return cp
}
