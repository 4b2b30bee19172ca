package types

import "time"

// OHLCV is a single candlestick. Series passed around the engine are
// time-ascending with strictly increasing timestamps.
type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

type Ticker struct {
	Symbol    string
	Price     float64
	Volume    float64
	Timestamp time.Time
}

// Closes extracts the close prices from a candle series.
func Closes(data []OHLCV) []float64 {
	closes := make([]float64, len(data))
	for i, d := range data {
		closes[i] = d.Close
	}
	return closes
}
