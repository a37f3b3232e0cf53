package portfolio

// Summary is an aggregate view of the ledger. ROI figures are summed
// percentage points per round trip, not compounded.
type Summary struct {
	TotalTrades   int     `json:"total_trades"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	WinRate       float64 `json:"win_rate"`
	TotalROI      float64 `json:"total_roi"`
	AvgROI        float64 `json:"avg_roi"`
	MaxDrawdown   float64 `json:"max_drawdown"`
	OpenPositions int     `json:"open_positions"`
}

// Summarize returns the current aggregate view.
func (l *Ledger) Summarize() Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{
		TotalTrades:   len(l.trades),
		Wins:          l.wins,
		Losses:        l.losses,
		TotalROI:      l.totalROI,
		MaxDrawdown:   l.maxDrawdown,
		OpenPositions: len(l.open),
	}
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.TotalTrades) * 100
		s.AvgROI = s.TotalROI / float64(s.TotalTrades)
	}
	return s
}
