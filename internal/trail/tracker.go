package trail

import (
	"math"

	"github.com/OldHunter0/Trend-Autostop/internal/indicators"
)

// Track scans the band frame bar by bar and produces the full trail sequence.
// The scan carries its accumulator by value; there is no shared state between
// bars or between invocations.
//
// Invariants maintained per bar:
//   - bull regime: TrailLong only ratchets up, TrailShort re-anchors to the
//     raw top band;
//   - bear regime: TrailShort only ratchets down, TrailLong re-anchors;
//   - neutral: both trails re-anchor to the raw bands.
//
// A regime flip requires confirmBars consecutive closes beyond the opposite
// trail. At most one flip happens per bar, and from neutral the bull check is
// evaluated first.
func Track(frame *indicators.BandFrame, confirmBars int) []Point {
	n := frame.Len()
	if n == 0 {
		return nil
	}

	points := make([]Point, n)
	points[0] = Point{
		TrailLong:  frame.Bottom[0],
		TrailShort: frame.Top[0],
		Regime:     RegimeNeutral,
	}

	for i := 1; i < n; i++ {
		prev := points[i-1]
		cur := Point{Regime: prev.Regime}

		// Consecutive closes beyond the opposite trail. Comparisons against a
		// warm-up NaN trail are false, so runs stay at zero until the bands
		// are defined.
		if frame.Close[i] > prev.TrailShort {
			cur.BullRun = prev.BullRun + 1
		}
		if frame.Close[i] < prev.TrailLong {
			cur.BearRun = prev.BearRun + 1
		}

		switch prev.Regime {
		case RegimeBull:
			cur.TrailLong = math.Max(frame.Bottom[i], prev.TrailLong)
			cur.TrailShort = frame.Top[i]
		case RegimeBear:
			cur.TrailShort = math.Min(frame.Top[i], prev.TrailShort)
			cur.TrailLong = frame.Bottom[i]
		default:
			cur.TrailLong = frame.Bottom[i]
			cur.TrailShort = frame.Top[i]
		}

		switch {
		case prev.Regime == RegimeNeutral && cur.BullRun >= confirmBars:
			cur.Regime = RegimeBull
		case prev.Regime == RegimeNeutral && cur.BearRun >= confirmBars:
			cur.Regime = RegimeBear
		case prev.Regime == RegimeBull && cur.BearRun >= confirmBars:
			cur.Regime = RegimeBear
		case prev.Regime == RegimeBear && cur.BullRun >= confirmBars:
			cur.Regime = RegimeBull
		}

		points[i] = cur
	}

	return points
}

// Summarize reduces the trail sequence to the values the stop decision reads:
// the last bar plus flip detection against the second-to-last bar.
//
// In the neutral regime the current stop defaults to the long trail.
func Summarize(points []Point) Summary {
	last := points[len(points)-1]

	prevRegime := RegimeNeutral
	if len(points) > 1 {
		prevRegime = points[len(points)-2].Regime
	}

	stop := last.TrailLong
	if last.Regime == RegimeBear {
		stop = last.TrailShort
	}

	sum := Summary{
		Regime:      last.Regime,
		TrailLong:   last.TrailLong,
		TrailShort:  last.TrailShort,
		CurrentStop: stop,
	}
	if last.Regime != prevRegime && last.Regime != RegimeNeutral {
		sum.Flipped = true
		sum.FlipTo = last.Regime
	}
	return sum
}
