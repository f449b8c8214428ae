package forecast

import "retailcast/internal/stats"

const (
	momentumShort   = 7
	momentumLong    = 14
	baselineWindow  = 30
	momentumFloor   = 0.8
	momentumCeiling = 1.2
)

// Momentum is the ratio of the 7-day to the 14-day trailing mean, clamped to [0.8, 1.2].
// A zero 14-day mean yields 1.
func Momentum(quantity []float64) float64 {
	long := stats.TailMean(quantity, momentumLong)
	if long == 0 {
		return 1
	}
	m := stats.TailMean(quantity, momentumShort) / long
	return min(max(m, momentumFloor), momentumCeiling)
}

// ColdStart projects the trailing 30-day median, scaled by momentum, flat over the horizon.
func ColdStart(quantity []float64, horizon int) []float64 {
	level := stats.TailMedian(quantity, baselineWindow) * Momentum(quantity)
	out := make([]float64, horizon)
	for i := range out {
		out[i] = level
	}
	return out
}
