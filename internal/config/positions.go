package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/OldHunter0/Trend-Autostop/internal/indicators"
)

// PositionConfig describes one managed position: which exchange position it
// tracks, when its stop may start moving, and the indicator parameters used
// to compute the trailing level.
type PositionConfig struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`      // "long" or "short"
	Timeframe string `json:"timeframe"` // see Timeframes

	SLOffset  float64 `json:"sl_offset"`  // extra price buffer on the computed stop
	DelayBars int     `json:"delay_bars"` // post-entry grace period in bars

	EMALength     int     `json:"ema_len"`
	ATRLength     int     `json:"atr_len"`
	BaseMult      float64 `json:"base_mult"`
	VolLookback   int     `json:"vol_lookback"`
	VolPower      float64 `json:"vol_power"`
	TrendLookback int     `json:"trend_lookback"`
	TrendImpact   float64 `json:"trend_impact"`
	MultMin       float64 `json:"mult_min"`
	MultMax       float64 `json:"mult_max"`
	ConfirmBars   int     `json:"confirm_bars"`
}

// ApplyDefaults fills zero-valued fields with the stock parameter set.
func (p *PositionConfig) ApplyDefaults() {
	def := indicators.DefaultBandParams()
	if p.Timeframe == "" {
		p.Timeframe = "15m"
	}
	if p.EMALength == 0 {
		p.EMALength = def.EMALength
	}
	if p.ATRLength == 0 {
		p.ATRLength = def.ATRLength
	}
	if p.BaseMult == 0 {
		p.BaseMult = def.BaseMult
	}
	if p.VolLookback == 0 {
		p.VolLookback = def.VolLookback
	}
	if p.VolPower == 0 {
		p.VolPower = def.VolPower
	}
	if p.TrendLookback == 0 {
		p.TrendLookback = def.TrendLookback
	}
	if p.TrendImpact == 0 {
		p.TrendImpact = def.TrendImpact
	}
	if p.MultMin == 0 {
		p.MultMin = def.MultMin
	}
	if p.MultMax == 0 {
		p.MultMax = def.MultMax
	}
	if p.ConfirmBars == 0 {
		p.ConfirmBars = 1
	}
}

// BandParams converts the indicator fields to calculation parameters.
func (p *PositionConfig) BandParams() indicators.BandParams {
	return indicators.BandParams{
		EMALength:     p.EMALength,
		ATRLength:     p.ATRLength,
		BaseMult:      p.BaseMult,
		VolLookback:   p.VolLookback,
		VolPower:      p.VolPower,
		TrendLookback: p.TrendLookback,
		TrendImpact:   p.TrendImpact,
		MultMin:       p.MultMin,
		MultMax:       p.MultMax,
	}
}

// PositionsFile is the on-disk shape of the managed-positions config.
type PositionsFile struct {
	Positions []PositionConfig `json:"positions"`
}

// LoadPositions reads, defaults and validates the positions file.
func LoadPositions(path string) ([]PositionConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read positions file %s: %w", path, err)
	}

	var file PositionsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse positions file %s: %w", path, err)
	}

	seen := make(map[string]bool)
	for i := range file.Positions {
		p := &file.Positions[i]
		p.ApplyDefaults()
		if err := ValidatePosition(p); err != nil {
			return nil, fmt.Errorf("position %d (%s): %w", i, p.Symbol, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate position id %q", p.ID)
		}
		seen[p.ID] = true
	}

	return file.Positions, nil
}
