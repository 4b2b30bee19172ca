package indicators

import (
	"math"

	"github.com/OldHunter0/Trend-Autostop/pkg/types"
)

// TrueRanges computes the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close, so its true range is high-low.
func TrueRanges(data []types.OHLCV) []float64 {
	tr := make([]float64, len(data))
	if len(data) == 0 {
		return tr
	}

	tr[0] = data[0].High - data[0].Low
	for i := 1; i < len(data); i++ {
		hl := data[i].High - data[i].Low
		hc := math.Abs(data[i].High - data[i-1].Close)
		lc := math.Abs(data[i].Low - data[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// SMASeries computes a rolling simple moving average over the given window.
// Entries before the window is full are NaN, and a window containing NaN
// yields NaN, so warm-up gaps propagate instead of producing partial means.
func SMASeries(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		valid := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if valid {
			out[i] = sum / float64(window)
		}
	}
	return out
}
