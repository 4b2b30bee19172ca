package exchange

import (
	"context"

	"github.com/OldHunter0/Trend-Autostop/pkg/types"
)

// Position is the engine-facing view of a live exchange position.
type Position struct {
	Symbol        string
	Side          string // "long" or "short"
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	UnrealizedPnL float64
	Leverage      float64
	LiqPrice      float64
	StopLoss      float64 // 0 when no stop order is attached
	PositionIdx   int     // exchange-native index, needed for hedge mode
}

// Exchange is the narrow capability surface the stop monitor needs. All
// calls take a context; implementations perform the network I/O the
// calculation engine itself never does.
type Exchange interface {
	GetName() string

	// GetKlines returns up to limit closed candles for the symbol and
	// timeframe, sorted by ascending timestamp.
	GetKlines(ctx context.Context, symbol, timeframe string, limit int) ([]types.OHLCV, error)

	// GetPosition returns the open position matching symbol and side, or nil
	// when no such position exists.
	GetPosition(ctx context.Context, symbol, side string) (*Position, error)

	// SetStopLoss replaces the stop order attached to the position.
	SetStopLoss(ctx context.Context, pos *Position, stopPrice float64) error

	GetLatestPrice(ctx context.Context, symbol string) (float64, error)
}
