package config

import (
	"fmt"
)

// ValidatePosition checks a position config after defaults have been applied.
// Validation happens here, at configuration time; the calculation engine never
// re-validates and degrades deterministically on the one hazard it can hit
// (mult_min > mult_max clamps to mult_min).
func ValidatePosition(p *PositionConfig) error {
	if p.ID == "" {
		return fmt.Errorf("position id is required")
	}

	if p.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if p.Side != "long" && p.Side != "short" {
		return fmt.Errorf("side must be \"long\" or \"short\", got: %q", p.Side)
	}

	if _, ok := Timeframes[p.Timeframe]; !ok {
		return fmt.Errorf("unsupported timeframe: %q", p.Timeframe)
	}

	if p.SLOffset < 0 {
		return fmt.Errorf("sl_offset must be non-negative, got: %.4f", p.SLOffset)
	}

	if p.DelayBars < 0 {
		return fmt.Errorf("delay_bars must be non-negative, got: %d", p.DelayBars)
	}

	if p.EMALength < 2 {
		return fmt.Errorf("ema_len must be at least 2, got: %d", p.EMALength)
	}

	if p.ATRLength < 1 {
		return fmt.Errorf("atr_len must be at least 1, got: %d", p.ATRLength)
	}

	if p.BaseMult <= 0 {
		return fmt.Errorf("base_mult must be positive, got: %.4f", p.BaseMult)
	}

	if p.VolLookback < 2 {
		return fmt.Errorf("vol_lookback must be at least 2, got: %d", p.VolLookback)
	}

	if p.VolPower < 0.1 {
		return fmt.Errorf("vol_power must be at least 0.1, got: %.4f", p.VolPower)
	}

	if p.TrendLookback < 2 {
		return fmt.Errorf("trend_lookback must be at least 2, got: %d", p.TrendLookback)
	}

	if p.TrendImpact < 0 || p.TrendImpact > 1 {
		return fmt.Errorf("trend_impact must be between 0 and 1, got: %.4f", p.TrendImpact)
	}

	if p.MultMin > p.MultMax {
		return fmt.Errorf("mult_min (%.4f) must not exceed mult_max (%.4f)", p.MultMin, p.MultMax)
	}

	if p.ConfirmBars < 1 {
		return fmt.Errorf("confirm_bars must be at least 1, got: %d", p.ConfirmBars)
	}

	// The ATR average only becomes defined after atr_len+vol_lookback-1 bars.
	// If that exceeds the minimum-bars gate, a series can pass the length check
	// with NaN bands on its final bar, and the decision would advance a NaN
	// stop. Reject the combination upfront.
	bp := p.BandParams()
	if warmup := p.ATRLength + p.VolLookback - 1; warmup > bp.MinBars() {
		return fmt.Errorf("atr_len + vol_lookback warm-up (%d bars) exceeds the minimum history gate (%d bars); reduce the windows or raise trend_lookback", warmup, bp.MinBars())
	}

	return nil
}
