package backtest

import "statarb-systemv1/internal/model"

// mergeTicks interleaves two already-sorted trade streams into one
// stream ordered by timestamp. On equal timestamps the first stream's
// trade comes first, so a replay is reproducible run to run.
func mergeTicks(a, b []model.Tick) []model.Tick {
	merged := make([]model.Tick, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].Timestamp <= b[j].Timestamp {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
