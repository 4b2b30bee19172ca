package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tick metrics
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autostop_ticks_total",
			Help: "Total number of position ticks processed",
		},
		[]string{"symbol", "timeframe"},
	)

	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autostop_decisions_total",
			Help: "Stop decisions by outcome",
		},
		[]string{"symbol", "action"},
	)

	stopMovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autostop_stop_moves_total",
			Help: "Total number of exchange stop orders moved",
		},
		[]string{"symbol", "side"},
	)

	// Market data metrics
	currentStop = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autostop_current_stop",
			Help: "Current stop price of a managed position",
		},
		[]string{"symbol", "side"},
	)

	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autostop_current_price",
			Help: "Latest close price of a managed symbol",
		},
		[]string{"symbol"},
	)

	regimeGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "autostop_regime",
			Help: "Detected regime per symbol (1 bull, -1 bear, 0 neutral)",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autostop_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(stopMovesTotal)
	prometheus.MustRegister(currentStop)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(regimeGauge)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordTick records a processed position tick
func RecordTick(symbol, timeframe string) {
	ticksTotal.WithLabelValues(symbol, timeframe).Inc()
}

// RecordDecision records a stop decision outcome
func RecordDecision(symbol, action string) {
	decisionsTotal.WithLabelValues(symbol, action).Inc()
}

// RecordStopMove records a stop order replacement
func RecordStopMove(symbol, side string, stopPrice float64) {
	stopMovesTotal.WithLabelValues(symbol, side).Inc()
	currentStop.WithLabelValues(symbol, side).Set(stopPrice)
}

// UpdatePrice updates the latest price gauge
func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateRegime updates the detected regime gauge
func UpdateRegime(symbol string, regime int) {
	regimeGauge.WithLabelValues(symbol).Set(float64(regime))
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
