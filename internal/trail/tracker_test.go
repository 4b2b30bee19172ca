package trail

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldHunter0/Trend-Autostop/internal/indicators"
	"github.com/OldHunter0/Trend-Autostop/pkg/types"
)

// makeFrame builds a band frame directly from raw series, bypassing the band
// calculation, so transitions can be scripted bar by bar.
func makeFrame(closes, tops, bottoms []float64) *indicators.BandFrame {
	return &indicators.BandFrame{
		Close:  closes,
		Top:    tops,
		Bottom: bottoms,
	}
}

// constFrame builds n bars with fixed top/bottom bands and the given closes.
func constFrame(closes []float64, top, bottom float64) *indicators.BandFrame {
	n := len(closes)
	tops := make([]float64, n)
	bottoms := make([]float64, n)
	for i := range tops {
		tops[i] = top
		bottoms[i] = bottom
	}
	return makeFrame(closes, tops, bottoms)
}

func TestTrack_InitialState(t *testing.T) {
	frame := constFrame([]float64{100}, 105, 95)
	points := Track(frame, 1)

	require.Len(t, points, 1)
	assert.Equal(t, RegimeNeutral, points[0].Regime)
	assert.Equal(t, 95.0, points[0].TrailLong)
	assert.Equal(t, 105.0, points[0].TrailShort)
	assert.Zero(t, points[0].BullRun)
	assert.Zero(t, points[0].BearRun)
}

func TestTrack_EmptyFrame(t *testing.T) {
	assert.Nil(t, Track(makeFrame(nil, nil, nil), 1))
}

func TestTrack_NeutralReanchorsEveryBar(t *testing.T) {
	closes := []float64{100, 100, 100}
	tops := []float64{105, 106, 104}
	bottoms := []float64{95, 96, 94}
	points := Track(makeFrame(closes, tops, bottoms), 1)

	for i, p := range points {
		assert.Equal(t, RegimeNeutral, p.Regime)
		assert.Equal(t, bottoms[i], p.TrailLong, "bar %d", i)
		assert.Equal(t, tops[i], p.TrailShort, "bar %d", i)
	}
}

func TestTrack_FlipToBullOnBreak(t *testing.T) {
	// Close breaks above the short trail on bar 1
	points := Track(constFrame([]float64{100, 106}, 105, 95), 1)

	assert.Equal(t, RegimeNeutral, points[0].Regime)
	assert.Equal(t, 1, points[1].BullRun)
	assert.Equal(t, RegimeBull, points[1].Regime)
}

func TestTrack_FlipToBearOnBreak(t *testing.T) {
	points := Track(constFrame([]float64{100, 94}, 105, 95), 1)

	assert.Equal(t, 1, points[1].BearRun)
	assert.Equal(t, RegimeBear, points[1].Regime)
}

func TestTrack_ConfirmBarsGateFlip(t *testing.T) {
	// Two qualifying closes with confirm_bars=3 must not flip
	closes := []float64{100, 106, 106, 100, 106, 106, 106}
	points := Track(constFrame(closes, 105, 95), 3)

	assert.Equal(t, RegimeNeutral, points[2].Regime, "confirm_bars-1 closes must not flip")
	assert.Equal(t, 0, points[3].BullRun, "run resets on a non-qualifying close")
	assert.Equal(t, RegimeNeutral, points[5].Regime)
	assert.Equal(t, 3, points[6].BullRun)
	assert.Equal(t, RegimeBull, points[6].Regime, "exactly confirm_bars closes flip")
}

func TestTrack_BullTrailRatchetsUpOnly(t *testing.T) {
	closes := []float64{100, 106, 107, 108, 109}
	tops := []float64{105, 110, 111, 112, 113}
	bottoms := []float64{95, 98, 97, 92, 99}
	points := Track(makeFrame(closes, tops, bottoms), 1)

	require.Equal(t, RegimeBull, points[1].Regime)
	// Flip bar re-anchors (previous regime was neutral), then the ratchet holds
	assert.Equal(t, 98.0, points[1].TrailLong)
	assert.Equal(t, 98.0, points[2].TrailLong, "lower band must not drag the trail down")
	assert.Equal(t, 98.0, points[3].TrailLong)
	assert.Equal(t, 99.0, points[4].TrailLong, "higher band ratchets the trail up")

	// Short trail re-anchors every bar while bullish
	assert.Equal(t, 111.0, points[2].TrailShort)
	assert.Equal(t, 112.0, points[3].TrailShort)
}

func TestTrack_BearTrailRatchetsDownOnly(t *testing.T) {
	closes := []float64{100, 94, 93, 92, 91}
	tops := []float64{105, 102, 103, 108, 101}
	bottoms := []float64{95, 90, 89, 88, 87}
	points := Track(makeFrame(closes, tops, bottoms), 1)

	require.Equal(t, RegimeBear, points[1].Regime)
	assert.Equal(t, 102.0, points[1].TrailShort)
	assert.Equal(t, 102.0, points[2].TrailShort, "higher band must not drag the trail up")
	assert.Equal(t, 102.0, points[3].TrailShort)
	assert.Equal(t, 101.0, points[4].TrailShort, "lower band ratchets the trail down")
}

func TestTrack_BullToBearRequiresConfirmation(t *testing.T) {
	// Enter bull, then close below the long trail for two bars with confirm=2
	closes := []float64{100, 106, 90, 90}
	tops := []float64{105, 105, 105, 105}
	bottoms := []float64{95, 95, 95, 95}
	points := Track(makeFrame(closes, tops, bottoms), 2)

	require.Equal(t, RegimeNeutral, points[1].Regime, "confirm=2 needs two breaks")

	closes = []float64{100, 106, 106, 90, 90}
	points = Track(constFrame(closes, 105, 95), 2)
	require.Equal(t, RegimeBull, points[2].Regime)
	assert.Equal(t, RegimeBull, points[3].Regime, "one bear break is not enough")
	assert.Equal(t, RegimeBear, points[4].Regime)
}

func TestTrack_BullPriorityOnSimultaneousConfirm(t *testing.T) {
	// Inverted bands make a single close satisfy both run conditions at once
	closes := []float64{100, 15}
	tops := []float64{10, 10}
	bottoms := []float64{20, 20}
	points := Track(makeFrame(closes, tops, bottoms), 1)

	assert.Equal(t, 1, points[1].BullRun)
	assert.Equal(t, 1, points[1].BearRun)
	assert.Equal(t, RegimeBull, points[1].Regime, "bull branch is checked first")
}

func TestSummarize_NeutralDefaultsToLongTrail(t *testing.T) {
	points := Track(constFrame([]float64{100, 100}, 105, 95), 1)
	sum := Summarize(points)

	assert.Equal(t, RegimeNeutral, sum.Regime)
	assert.Equal(t, sum.TrailLong, sum.CurrentStop)
	assert.False(t, sum.Flipped)
}

func TestSummarize_BearUsesShortTrail(t *testing.T) {
	points := Track(constFrame([]float64{100, 94, 93}, 105, 95), 1)
	sum := Summarize(points)

	assert.Equal(t, RegimeBear, sum.Regime)
	assert.Equal(t, sum.TrailShort, sum.CurrentStop)
}

func TestSummarize_DetectsFlipOnLastBar(t *testing.T) {
	points := Track(constFrame([]float64{100, 100, 106}, 105, 95), 1)
	sum := Summarize(points)

	assert.True(t, sum.Flipped)
	assert.Equal(t, RegimeBull, sum.FlipTo)

	// One bar later the flip is no longer fresh
	points = Track(constFrame([]float64{100, 100, 106, 107}, 105, 95), 1)
	assert.False(t, Summarize(points).Flipped)
}

// Integration scenarios running the real band calculation underneath.

func flatSeries(count int) []types.OHLCV {
	data := make([]types.OHLCV, count)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range data {
		data[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 100, Low: 100, Close: 100, Volume: 1000,
		}
	}
	return data
}

func TestTrack_FlatMarketStaysNeutral(t *testing.T) {
	frame, err := indicators.ComputeBands(flatSeries(200), indicators.DefaultBandParams())
	require.NoError(t, err)

	points := Track(frame, 1)
	for i, p := range points {
		assert.Equal(t, RegimeNeutral, p.Regime, "bar %d", i)
	}
}

func TestTrack_RisingMarketFlipsBullAndRatchets(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]types.OHLCV, 100)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	price := 100.0
	for i := 0; i < 40; i++ {
		price = 100.0 + rng.Float64()*2 - 1
		data[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price + 1, Low: price - 1, Close: price, Volume: 1000,
		}
	}
	// Gap-free trending bars: each close steps up faster than the widening
	// bands can follow.
	for i := 40; i < 100; i++ {
		open := price
		price += 3.0
		data[i] = types.OHLCV{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      open, High: price, Low: open, Close: price, Volume: 1000,
		}
	}

	frame, err := indicators.ComputeBands(data, indicators.DefaultBandParams())
	require.NoError(t, err)
	points := Track(frame, 1)

	require.Equal(t, RegimeBull, points[len(points)-1].Regime)

	// Find the flip and verify the trail equals the running max of the lower
	// band since then.
	flip := -1
	for i, p := range points {
		if p.Regime == RegimeBull {
			flip = i
			break
		}
	}
	require.Greater(t, flip, 0)

	runningMax := frame.Bottom[flip]
	for i := flip + 1; i < len(points); i++ {
		require.Equal(t, RegimeBull, points[i].Regime, "bar %d", i)
		if frame.Bottom[i] > runningMax {
			runningMax = frame.Bottom[i]
		}
		assert.Equal(t, runningMax, points[i].TrailLong, "bar %d", i)
		assert.GreaterOrEqual(t, points[i].TrailLong, points[i-1].TrailLong, "trail must never drop while bullish")
	}
}

func TestRegime_String(t *testing.T) {
	assert.Equal(t, "bull", RegimeBull.String())
	assert.Equal(t, "bear", RegimeBear.String())
	assert.Equal(t, "neutral", RegimeNeutral.String())
}
