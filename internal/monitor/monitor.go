package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OldHunter0/Trend-Autostop/internal/config"
	"github.com/OldHunter0/Trend-Autostop/internal/decision"
	boterrors "github.com/OldHunter0/Trend-Autostop/internal/errors"
	"github.com/OldHunter0/Trend-Autostop/internal/exchange"
	"github.com/OldHunter0/Trend-Autostop/internal/indicators"
	"github.com/OldHunter0/Trend-Autostop/internal/logger"
	"github.com/OldHunter0/Trend-Autostop/internal/monitoring"
	"github.com/OldHunter0/Trend-Autostop/internal/notifications"
	"github.com/OldHunter0/Trend-Autostop/internal/state"
	"github.com/OldHunter0/Trend-Autostop/internal/trail"
)

const (
	// Candles requested per tick. Plenty for the default lookback windows.
	klineLimit = 200

	// Delay after a bar closes before processing, so the exchange has the
	// final candle available.
	settleDelay = 10 * time.Second

	tickTimeout = 30 * time.Second
)

// managedPosition couples a position config with its runtime state. The mutex
// serializes ticks: a stale computation must never commit after a newer one,
// or the stop ratchet could move backwards.
type managedPosition struct {
	cfg    config.PositionConfig
	side   decision.Side
	log    *logger.Logger
	mu     sync.Mutex
	rec    *state.PositionRecord
	halted bool
}

// Monitor drives the stop-management loop: on every bar close of each
// configured timeframe it recomputes the trailing stop for the matching
// positions and moves the exchange-side stop order when instructed.
type Monitor struct {
	cfg       *config.Config
	exchange  exchange.Exchange
	store     *state.Store
	notifier  notifications.Notifier
	health    *monitoring.HealthChecker
	positions []*managedPosition

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a monitor for the given position configs, restoring persisted
// decision state where it exists.
func New(
	cfg *config.Config,
	exch exchange.Exchange,
	store *state.Store,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	positions []config.PositionConfig,
) (*Monitor, error) {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}

	m := &Monitor{
		cfg:      cfg,
		exchange: exch,
		store:    store,
		notifier: notifier,
		health:   health,
		stopChan: make(chan struct{}),
	}

	for _, pc := range positions {
		side, err := decision.ParseSide(pc.Side)
		if err != nil {
			return nil, err
		}

		log, err := logger.NewLogger(cfg.LogDir, pc.Symbol, pc.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger for %s: %w", pc.Symbol, err)
		}

		rec, found, err := store.LoadPosition(pc.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			rec = &state.PositionRecord{
				ID:        pc.ID,
				Symbol:    pc.Symbol,
				Side:      pc.Side,
				Timeframe: pc.Timeframe,
				Status:    state.StatusActive,
			}
		}

		m.positions = append(m.positions, &managedPosition{
			cfg:    pc,
			side:   side,
			log:    log,
			rec:    rec,
			halted: rec.Status == state.StatusStopped,
		})
	}

	return m, nil
}

// Run starts one scheduling goroutine per distinct timeframe and blocks until
// ctx is cancelled or Stop is called.
func (m *Monitor) Run(ctx context.Context) {
	byTimeframe := make(map[string][]*managedPosition)
	for _, p := range m.positions {
		byTimeframe[p.cfg.Timeframe] = append(byTimeframe[p.cfg.Timeframe], p)
	}

	for tf, group := range byTimeframe {
		barDur := config.Timeframes[tf]
		m.wg.Add(1)
		go m.scheduleTimeframe(ctx, tf, barDur, group)
	}

	m.wg.Wait()
}

// Stop terminates the scheduling loops.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})
}

// Records returns a snapshot of the current position records.
func (m *Monitor) Records() []state.PositionRecord {
	recs := make([]state.PositionRecord, 0, len(m.positions))
	for _, p := range m.positions {
		p.mu.Lock()
		recs = append(recs, *p.rec)
		p.mu.Unlock()
	}
	return recs
}

// scheduleTimeframe fires once per bar close (plus settle delay) for one
// timeframe group. Positions inside a group run concurrently; each position's
// own ticks stay serialized via its mutex.
func (m *Monitor) scheduleTimeframe(ctx context.Context, tf string, barDur time.Duration, group []*managedPosition) {
	defer m.wg.Done()

	for {
		wait := time.Until(nextBarClose(time.Now(), barDur))
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.stopChan:
			timer.Stop()
			return
		case <-timer.C:
		}

		for _, p := range group {
			go m.tick(ctx, p)
		}
	}
}

// nextBarClose returns the next bar boundary after now, plus the settle delay.
func nextBarClose(now time.Time, barDur time.Duration) time.Time {
	return now.UTC().Truncate(barDur).Add(barDur).Add(settleDelay)
}

// tick runs one serialized evaluation for a position. An overlapping tick is
// dropped rather than queued: the next bar close recomputes from the full
// history anyway.
func (m *Monitor) tick(ctx context.Context, p *managedPosition) {
	if !p.mu.TryLock() {
		p.log.Warning("previous tick still running, skipping this bar")
		return
	}
	defer p.mu.Unlock()

	if p.halted {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	if err := m.processPosition(ctx, p); err != nil {
		p.log.Error("tick failed: %v", err)
		monitoring.RecordError(string(categorize(err)))
		if m.health != nil {
			m.health.AddError(err.Error())
		}
		return
	}

	if m.health != nil {
		m.health.RecordTick()
	}
}

// processPosition is the per-tick pipeline: fetch position and candles, run
// the band/trail/decision chain, then act on the outcome.
func (m *Monitor) processPosition(ctx context.Context, p *managedPosition) error {
	monitoring.RecordTick(p.cfg.Symbol, p.cfg.Timeframe)

	pos, err := m.exchange.GetPosition(ctx, p.cfg.Symbol, p.cfg.Side)
	if err != nil {
		m.logOperation(p, "error", fmt.Sprintf("failed to fetch position: %v", err), nil, nil, err)
		return boterrors.NewPositionError("monitor", "get_position", err)
	}

	if pos == nil {
		return m.retirePosition(p)
	}

	klines, err := m.exchange.GetKlines(ctx, p.cfg.Symbol, p.cfg.Timeframe, klineLimit)
	if err != nil {
		m.logOperation(p, "error", fmt.Sprintf("failed to fetch candles: %v", err), nil, nil, err)
		return boterrors.NewExchangeError("monitor", "get_klines", err)
	}

	frame, err := indicators.ComputeBands(klines, p.cfg.BandParams())
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			// Transient: more history accumulates on its own. No state
			// mutation happens for this tick.
			p.log.Warning("only %d candles available, waiting for more history", len(klines))
			return boterrors.NewDataError("monitor", "compute_bands", err)
		}
		return boterrors.NewDataError("monitor", "compute_bands", err)
	}

	sum := trail.Summarize(trail.Track(frame, p.cfg.ConfirmBars))

	st := decision.State{
		Side:          p.side,
		LastRegime:    trail.Regime(p.rec.LastRegime),
		BarsSinceOpen: p.rec.BarsSinceOpen,
	}
	if p.rec.CurrentStop != nil {
		v := *p.rec.CurrentStop
		st.CurrentStop = &v
	}

	dec, newSt := decision.Decide(sum, p.cfg.SLOffset, p.cfg.DelayBars, st)

	monitoring.RecordDecision(p.cfg.Symbol, dec.Action.String())
	monitoring.UpdateRegime(p.cfg.Symbol, int(sum.Regime))

	// The price gauge tracks the live ticker; the last close is only the
	// fallback when the ticker endpoint is unavailable.
	price := klines[len(klines)-1].Close
	if live, err := m.exchange.GetLatestPrice(ctx, p.cfg.Symbol); err == nil && live > 0 {
		price = live
	}
	monitoring.UpdatePrice(p.cfg.Symbol, price)

	if sum.Flipped {
		p.log.Info("regime flipped to %s (trail long %.4f, trail short %.4f)",
			sum.FlipTo, sum.TrailLong, sum.TrailShort)
	}

	p.rec.BarsSinceOpen = newSt.BarsSinceOpen
	p.rec.LastRegime = int(newSt.LastRegime)
	p.rec.CalculatedStop = dec.Stop
	p.rec.EntryPrice = pos.EntryPrice
	p.rec.Size = pos.Size
	p.rec.LastCheckedAt = time.Now().UTC()

	switch dec.Action {
	case decision.ActionSkip:
		p.log.Info("delay active (%d/%d bars), stop adjustment skipped, computed level %.4f",
			p.rec.BarsSinceOpen, p.cfg.DelayBars, dec.Stop)
		m.logOperation(p, "info",
			fmt.Sprintf("delay active (%d/%d), skip adjustment", p.rec.BarsSinceOpen, p.cfg.DelayBars),
			nil, nil, nil)

	case decision.ActionHold:
		p.log.Info("stop unchanged: stored %.4f, computed %.4f, regime %s",
			*p.rec.CurrentStop, dec.Stop, sum.Regime)

	case decision.ActionAdvance:
		if err := m.advanceStop(ctx, p, pos, dec.Stop); err != nil {
			// Persist bookkeeping even when the order update failed; the
			// stored stop is untouched so the next tick retries the move.
			if saveErr := m.store.SavePosition(p.rec); saveErr != nil {
				p.log.Error("failed to persist state: %v", saveErr)
			}
			return err
		}
	}

	return m.store.SavePosition(p.rec)
}

// advanceStop replaces the exchange-side stop order and commits the new level.
func (m *Monitor) advanceStop(ctx context.Context, p *managedPosition, pos *exchange.Position, newStop float64) error {
	oldStop := p.rec.CurrentStop

	if err := m.exchange.SetStopLoss(ctx, pos, newStop); err != nil {
		m.logOperation(p, "error", fmt.Sprintf("failed to move stop to %.4f: %v", newStop, err), oldStop, &newStop, err)
		return boterrors.NewExchangeError("monitor", "set_stop_loss", err)
	}

	prev := 0.0
	if oldStop != nil {
		prev = *oldStop
	}
	p.log.StopMove(p.cfg.Side, prev, newStop)
	monitoring.RecordStopMove(p.cfg.Symbol, p.cfg.Side, newStop)

	p.rec.CurrentStop = &newStop
	m.logOperation(p, "update_stop",
		fmt.Sprintf("stop updated: %.4f -> %.4f", prev, newStop), oldStop, &newStop, nil)

	msg := fmt.Sprintf("%s %s stop moved to %.4f", p.cfg.Symbol, p.cfg.Side, newStop)
	if err := m.notifier.SendAlert("stop", msg); err != nil {
		p.log.Warning("failed to send notification: %v", err)
	}

	return nil
}

// retirePosition handles a position that no longer exists on the exchange.
func (m *Monitor) retirePosition(p *managedPosition) error {
	p.log.Info("position closed on exchange, stopping management")
	p.halted = true
	p.rec.Status = state.StatusStopped

	m.logOperation(p, "info", "position closed, config stopped", nil, nil, nil)
	if err := m.notifier.SendAlert("warning",
		fmt.Sprintf("%s %s position closed, stop management stopped", p.cfg.Symbol, p.cfg.Side)); err != nil {
		p.log.Warning("failed to send notification: %v", err)
	}

	// The decision state dies with the position; the operation log keeps the
	// audit trail.
	return m.store.RetirePosition(p.cfg.ID)
}

// logOperation appends an entry to the persistent operation log.
func (m *Monitor) logOperation(p *managedPosition, action, message string, oldVal, newVal *float64, opErr error) {
	op := state.OperationRecord{
		PositionID: p.cfg.ID,
		Symbol:     p.cfg.Symbol,
		Action:     action,
		Message:    message,
		OldValue:   oldVal,
		NewValue:   newVal,
		Success:    opErr == nil,
	}
	if opErr != nil {
		op.Error = opErr.Error()
	}
	if err := m.store.AppendOperation(op); err != nil {
		p.log.Warning("failed to append operation log: %v", err)
	}
}

// categorize maps an error to its metric label.
func categorize(err error) boterrors.ErrorCategory {
	var botErr *boterrors.BotError
	if errors.As(err, &botErr) {
		return botErr.Category
	}
	return boterrors.ErrorCategoryTemporary
}
