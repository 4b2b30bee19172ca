package decision

import (
	"fmt"

	"github.com/OldHunter0/Trend-Autostop/internal/trail"
)

// Side is the configured direction of the managed position. It is deliberately
// distinct from trail.Regime: the regime is what the detector currently sees,
// the side is what the position actually is, and only the side decides which
// trail and which ratchet direction apply.
type Side int

const (
	SideLong Side = iota
	SideShort
)

// ParseSide parses a config-file side value.
func ParseSide(s string) (Side, error) {
	switch s {
	case "long":
		return SideLong, nil
	case "short":
		return SideShort, nil
	}
	return SideLong, fmt.Errorf("invalid position side %q (want \"long\" or \"short\")", s)
}

// String returns the config-file representation of the side.
func (s Side) String() string {
	if s == SideShort {
		return "short"
	}
	return "long"
}

// Action is the outcome of a single stop evaluation.
type Action int

const (
	// ActionSkip: the position is still inside its post-entry grace period.
	// The stop is computed for bookkeeping but no order is touched.
	ActionSkip Action = iota
	// ActionHold: the freshly computed stop is not more protective than the
	// one already on the order, so the order stays as it is.
	ActionHold
	// ActionAdvance: move the exchange-side stop to Decision.Stop.
	ActionAdvance
)

// String returns a readable action label.
func (a Action) String() string {
	switch a {
	case ActionAdvance:
		return "advance"
	case ActionHold:
		return "hold"
	default:
		return "skip"
	}
}

// State holds the per-position fields the evaluation carries between ticks.
// The caller owns persistence; Decide never touches CurrentStop, which is
// committed only after the exchange order update succeeds.
type State struct {
	Side          Side
	CurrentStop   *float64 // nil until a stop has been placed
	LastRegime    trail.Regime
	BarsSinceOpen int
}

// Decision is the result of one evaluation. Stop is always populated with the
// offset-adjusted level, even for Skip and Hold, so callers can record the
// computed level without acting on it.
type Decision struct {
	Action Action
	Stop   float64
}

// Decide evaluates the latest trail summary against the stored position state
// and returns the action to take plus the updated state (BarsSinceOpen and
// LastRegime only).
//
// The stop only ever ratchets toward reducing risk: up for a long position,
// down for a short one. The trail feeding the comparison is locked to the
// position's side regardless of the detected regime, so a long position never
// has its stop derived from the short trail even while the detector reports a
// bear regime.
func Decide(sum trail.Summary, offset float64, delayBars int, st State) (Decision, State) {
	st.BarsSinceOpen++
	st.LastRegime = sum.Regime

	var adjusted float64
	if st.Side == SideShort {
		adjusted = sum.TrailShort + offset
	} else {
		adjusted = sum.TrailLong - offset
	}

	if st.BarsSinceOpen <= delayBars {
		return Decision{Action: ActionSkip, Stop: adjusted}, st
	}

	if st.CurrentStop != nil {
		stored := *st.CurrentStop
		improved := adjusted > stored
		if st.Side == SideShort {
			improved = adjusted < stored
		}
		if !improved {
			return Decision{Action: ActionHold, Stop: adjusted}, st
		}
	}

	return Decision{Action: ActionAdvance, Stop: adjusted}, st
}
