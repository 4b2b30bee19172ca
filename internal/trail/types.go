package trail

// Regime is the tracker's directional state, derived from confirmed closes
// beyond the opposite trail.
type Regime int

const (
	RegimeBear    Regime = -1
	RegimeNeutral Regime = 0
	RegimeBull    Regime = 1
)

// String returns a readable regime label.
func (r Regime) String() string {
	switch r {
	case RegimeBull:
		return "bull"
	case RegimeBear:
		return "bear"
	default:
		return "neutral"
	}
}

// Point is the carried trail state at one bar.
type Point struct {
	TrailLong  float64
	TrailShort float64
	Regime     Regime
	BullRun    int
	BearRun    int
}

// Summary is the slice of the trail the stop decision consumes: the final
// bar's values plus flip detection against the previous bar.
type Summary struct {
	Regime      Regime
	TrailLong   float64
	TrailShort  float64
	CurrentStop float64
	Flipped     bool
	FlipTo      Regime // RegimeNeutral when Flipped is false
}
