package indicators

import (
	"errors"
	"math"

	"github.com/OldHunter0/Trend-Autostop/pkg/types"
)

// ErrInsufficientData is returned when the candle series is shorter than the
// warm-up window the band calculation needs. The caller must treat the whole
// tick as failed; there is no partial result.
var ErrInsufficientData = errors.New("insufficient data for volatility band calculation")

// Extra bars required beyond the longest lookback window before the bands are
// considered stable enough to act on.
const warmupMargin = 10

// BandParams are the user-tunable inputs of the volatility band calculation.
// They are immutable for the duration of a calculation.
type BandParams struct {
	EMALength     int     // span of the EMA basis
	ATRLength     int     // window of the ATR simple moving average
	BaseMult      float64 // base band-width multiplier
	VolLookback   int     // window of the ATR average used for the stretch ratio
	VolPower      float64 // exponent applied to the stretch ratio
	TrendLookback int     // span of the trend-memory EMA
	TrendImpact   float64 // weight of the trend-persistence boost, 0..1
	MultMin       float64 // lower clamp of the effective multiplier
	MultMax       float64 // upper clamp of the effective multiplier
}

// DefaultBandParams returns the stock parameter set.
func DefaultBandParams() BandParams {
	return BandParams{
		EMALength:     8,
		ATRLength:     14,
		BaseMult:      2.0,
		VolLookback:   20,
		VolPower:      1.0,
		TrendLookback: 25,
		TrendImpact:   0.4,
		MultMin:       1.0,
		MultMax:       4.0,
	}
}

// MinBars returns the minimum series length the calculation accepts.
func (p BandParams) MinBars() int {
	min := p.EMALength
	for _, v := range []int{p.ATRLength, p.VolLookback, p.TrendLookback} {
		if v > min {
			min = v
		}
	}
	return min + warmupMargin
}

// BandFrame holds the per-bar derived series of a single band calculation.
// Entries inside the ATR warm-up window are NaN. The frame is recomputed fresh
// on every invocation and never persisted.
type BandFrame struct {
	Close      []float64
	Basis      []float64
	ATR        []float64
	VolStretch []float64
	TrendBoost []float64
	Mult       []float64
	Top        []float64
	Bottom     []float64
}

// Len returns the number of bars in the frame.
func (f *BandFrame) Len() int {
	return len(f.Close)
}

// ComputeBands derives the adaptive volatility bands for the whole series.
// It is a pure function of its inputs: no state is carried between calls.
func ComputeBands(data []types.OHLCV, params BandParams) (*BandFrame, error) {
	n := len(data)
	if n < params.MinBars() {
		return nil, ErrInsufficientData
	}

	closes := types.Closes(data)
	basis := EMASeries(closes, params.EMALength)
	atr := SMASeries(TrueRanges(data), params.ATRLength)
	atrAvg := SMASeries(atr, params.VolLookback)

	// Stretch the band width by how much current volatility deviates from its
	// recent average. A zero average degenerates to a neutral ratio of 1.
	volStretch := make([]float64, n)
	for i := 0; i < n; i++ {
		ratio := 1.0
		if atrAvg[i] != 0 {
			ratio = atr[i] / atrAvg[i]
		}
		volStretch[i] = math.Pow(ratio, params.VolPower)
	}

	// Trend memory: EMA over the sign of the basis slope. A persistent trend
	// keeps the memory near +-1 and widens the bands via the boost.
	dirStep := make([]float64, n)
	dirStep[0] = -1 // slope undefined at the first bar
	for i := 1; i < n; i++ {
		if basis[i]-basis[i-1] >= 0 {
			dirStep[i] = 1
		} else {
			dirStep[i] = -1
		}
	}
	trendMemory := EMASeries(dirStep, params.TrendLookback)

	trendBoost := make([]float64, n)
	mult := make([]float64, n)
	top := make([]float64, n)
	bottom := make([]float64, n)
	for i := 0; i < n; i++ {
		trendBoost[i] = 1.0 + params.TrendImpact*math.Abs(trendMemory[i])

		// Clamp order is min-then-max: with MultMin > MultMax the result is
		// always MultMin. A bad edit degrades deterministically instead of
		// failing a running position.
		raw := params.BaseMult * volStretch[i] * trendBoost[i]
		mult[i] = math.Max(math.Min(raw, params.MultMax), params.MultMin)

		top[i] = basis[i] + mult[i]*atr[i]
		bottom[i] = basis[i] - mult[i]*atr[i]
	}

	return &BandFrame{
		Close:      closes,
		Basis:      basis,
		ATR:        atr,
		VolStretch: volStretch,
		TrendBoost: trendBoost,
		Mult:       mult,
		Top:        top,
		Bottom:     bottom,
	}, nil
}
