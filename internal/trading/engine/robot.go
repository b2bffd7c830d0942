// Package engine runs the robot's control loop: fetch the latest bars, refresh
// indicators, evaluate rules, execute trades and wait for the next bar.
package engine

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-robot/internal/indicator"
	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/metrics"
	"github.com/rxtech-lab/argo-robot/internal/portfolio"
	"github.com/rxtech-lab/argo-robot/internal/timeseries"
	"github.com/rxtech-lab/argo-robot/internal/trading/execution"
	tradingprovider "github.com/rxtech-lab/argo-robot/internal/trading/provider"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"go.uber.org/zap"
)

// Default loop settings.
const (
	DefaultLatestWindow  = 15 * time.Minute
	DefaultRetryInterval = 2 * time.Second
	// minCycleWait keeps a stale feed from spinning the loop.
	minCycleWait = time.Second
)

// BarWriter persists bars outside the in-memory store.
type BarWriter interface {
	Write(bars ...types.Bar) error
}

// RobotConfig holds the loop settings.
type RobotConfig struct {
	Symbols       []string
	BarInterval   time.Duration
	LatestWindow  time.Duration
	RetryInterval time.Duration
	ExtendedHours bool
	HaltOnError   bool
}

// Dependencies are the components a Robot drives. Archive and Clock are optional.
type Dependencies struct {
	MarketData  tradingprovider.MarketDataProvider
	Store       *timeseries.Store
	Indicators  *indicator.Engine
	Coordinator *execution.Coordinator
	Ledger      *portfolio.Ledger
	Bindings    execution.Bindings
	Archive     BarWriter
	Clock       MarketClock
	Logger      *logger.Logger
}

// Robot owns every run-scoped component.
type Robot struct {
	config      RobotConfig
	marketData  tradingprovider.MarketDataProvider
	store       *timeseries.Store
	indicators  *indicator.Engine
	coordinator *execution.Coordinator
	ledger      *portfolio.Ledger
	bindings    execution.Bindings
	archive     BarWriter
	clock       MarketClock
	log         *logger.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRobot validates the configuration and wires the components.
func NewRobot(config RobotConfig, deps Dependencies) (*Robot, error) {
	if len(config.Symbols) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "at least one symbol is required")
	}

	if deps.MarketData == nil || deps.Store == nil || deps.Indicators == nil || deps.Coordinator == nil || deps.Ledger == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "market data, store, indicators, coordinator and ledger are required")
	}

	if config.BarInterval <= 0 {
		config.BarInterval = DefaultBarInterval
	}

	if config.LatestWindow <= 0 {
		config.LatestWindow = DefaultLatestWindow
	}

	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}

	symbols := append([]string(nil), config.Symbols...)
	sort.Strings(symbols)
	config.Symbols = symbols

	if deps.Bindings == nil {
		deps.Bindings = execution.Bindings{}
	}

	if deps.Clock == nil {
		deps.Clock = AlwaysOpen{}
	}

	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}

	return &Robot{
		config:      config,
		marketData:  deps.MarketData,
		store:       deps.Store,
		indicators:  deps.Indicators,
		coordinator: deps.Coordinator,
		ledger:      deps.Ledger,
		bindings:    deps.Bindings,
		archive:     deps.Archive,
		clock:       deps.Clock,
		log:         deps.Logger,
		now:         time.Now,
		sleep:       sleepContext,
	}, nil
}

// Symbols returns the traded symbols in ascending order.
func (r *Robot) Symbols() []string {
	return append([]string(nil), r.config.Symbols...)
}

// Bindings returns the trade bindings driven by the loop.
func (r *Robot) Bindings() execution.Bindings {
	return r.bindings
}

// Close releases the bar archive, if any.
func (r *Robot) Close() error {
	if closer, ok := r.archive.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

// Warmup loads the bars of every symbol between start and end and refreshes
// the indicators once.
func (r *Robot) Warmup(ctx context.Context, start, end time.Time, onProgress *OnWarmupProgressCallback) error {
	frequencyType, frequency := Frequency(r.config.BarInterval)
	total := float64(len(r.config.Symbols))

	for i, symbol := range r.config.Symbols {
		history, err := r.marketData.GetPriceHistory(ctx, types.PriceHistoryRequest{
			Symbol:        symbol,
			PeriodType:    "day",
			Start:         start,
			End:           end,
			FrequencyType: frequencyType,
			Frequency:     frequency,
			ExtendedHours: r.config.ExtendedHours,
		})
		if err != nil {
			return errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to load history for %s", symbol)
		}

		if history.Error != "" {
			return errors.Newf(errors.ErrCodeDataFetchFailed, "failed to load history for %s: %s", symbol, history.Error)
		}

		bars := history.Bars()
		if err := r.appendBars(bars); err != nil {
			return err
		}

		r.log.Info("Loaded history",
			zap.String("symbol", symbol),
			zap.Int("bars", len(bars)),
			zap.Time("start", start),
			zap.Time("end", end),
		)

		if onProgress != nil {
			(*onProgress)(float64(i+1), total, symbol)
		}
	}

	return r.indicators.Refresh()
}

// Quotes returns the last prices of the symbols held in the ledger.
func (r *Robot) Quotes(ctx context.Context) (map[string]types.Quote, error) {
	symbols := r.ledger.Symbols()
	if len(symbols) == 0 {
		return map[string]types.Quote{}, nil
	}

	quotes, err := r.marketData.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataFetchFailed, "failed to fetch quotes", err)
	}

	return quotes, nil
}

// RunCycle performs one cycle: reset the executed flags, fetch and append the
// latest bar of every symbol, refresh the indicators, evaluate the rules and
// execute the signalled trades.
func (r *Robot) RunCycle(ctx context.Context) (CycleResult, error) {
	start := r.now()
	defer metrics.ObserveCycle(start)

	result := CycleResult{
		Bars:      []types.Bar{},
		Signals:   types.NewSignalResult(),
		Responses: []types.OrderResponse{},
		Duration:  0,
	}

	r.bindings.ResetExecuted()

	for _, symbol := range r.config.Symbols {
		bar, ok, err := r.fetchLatestBar(ctx, symbol)
		if err != nil {
			return result, err
		}

		if !ok {
			r.log.Warn("No bar in the latest window", zap.String("symbol", symbol))

			continue
		}

		result.Bars = append(result.Bars, bar)
	}

	if err := r.appendBars(result.Bars); err != nil {
		return result, err
	}

	if err := r.indicators.Refresh(); err != nil {
		return result, err
	}

	signals, err := r.indicators.Evaluate()
	if err != nil {
		return result, err
	}

	result.Signals = signals

	for _, symbol := range signals.Buys.Sorted() {
		metrics.SignalsTotal.WithLabelValues(symbol, string(types.SignalSideBuy)).Inc()
	}

	for _, symbol := range signals.Sells.Sorted() {
		metrics.SignalsTotal.WithLabelValues(symbol, string(types.SignalSideSell)).Inc()
	}

	responses, err := r.coordinator.ExecuteSignals(ctx, signals, r.bindings)
	result.Responses = responses
	result.Duration = r.now().Sub(start)

	return result, err
}

// Run loops until ctx is cancelled, the market clock reports closed, or a
// cycle fails with HaltOnError set. Between cycles it sleeps until the next
// bar is due.
func (r *Robot) Run(ctx context.Context, callbacks Callbacks) (runErr error) {
	defer func() {
		if callbacks.OnEngineStop != nil {
			(*callbacks.OnEngineStop)(runErr)
		}
	}()

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(r.Symbols(), r.config.BarInterval); err != nil {
			return err
		}
	}

	r.log.Info("Robot started",
		zap.Strings("symbols", r.config.Symbols),
		zap.Duration("interval", r.config.BarInterval),
		zap.String("mode", string(r.coordinator.Mode())),
	)

	for {
		if ctx.Err() != nil {
			r.log.Info("Robot stopped", zap.Error(ctx.Err()))

			return nil
		}

		if !r.clock.IsOpen(r.now()) {
			r.log.Info("Market closed, stopping robot")

			return nil
		}

		result, err := r.RunCycle(ctx)
		if err != nil {
			if callbacks.OnError != nil {
				(*callbacks.OnError)(err)
			}

			if r.config.HaltOnError {
				return err
			}

			r.log.Error("Cycle failed", zap.Error(err))
		}

		if callbacks.OnCycle != nil {
			if err := (*callbacks.OnCycle)(result); err != nil {
				return err
			}
		}

		wait := r.config.BarInterval
		if last, ok := r.store.LastTimestamp(); ok {
			wait = WaitDuration(last, r.now(), r.config.BarInterval)
		}

		if wait < minCycleWait {
			wait = minCycleWait
		}

		r.log.Debug("Waiting for next bar", zap.Duration("wait", wait))

		if err := r.sleep(ctx, wait); err != nil {
			r.log.Info("Robot stopped", zap.Error(err))

			return nil
		}
	}
}

// fetchLatestBar returns the most recent bar of symbol in the latest window.
// A failed request is retried once after RetryInterval.
func (r *Robot) fetchLatestBar(ctx context.Context, symbol string) (types.Bar, bool, error) {
	end := r.now()
	frequencyType, frequency := Frequency(r.config.BarInterval)
	req := types.PriceHistoryRequest{
		Symbol:        symbol,
		PeriodType:    "day",
		Start:         end.Add(-r.config.LatestWindow),
		End:           end,
		FrequencyType: frequencyType,
		Frequency:     frequency,
		ExtendedHours: r.config.ExtendedHours,
	}

	var history types.PriceHistory

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			metrics.FetchRetriesTotal.WithLabelValues(symbol).Inc()
			r.log.Warn("Retrying latest bar fetch", zap.String("symbol", symbol), zap.Int("attempt", attempt))
		}

		h, err := r.marketData.GetPriceHistory(ctx, req)
		if err != nil {
			return err
		}

		if h.Error != "" {
			return errors.Newf(errors.ErrCodeDataFetchFailed, "price history for %s: %s", symbol, h.Error)
		}

		history = h

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(r.config.RetryInterval), 1), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return types.Bar{}, false, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to fetch latest bar for %s", symbol)
	}

	bar, ok := history.LastBar()

	return bar, ok, nil
}

func (r *Robot) appendBars(bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	r.store.Append(bars...)

	for _, bar := range bars {
		metrics.BarsTotal.WithLabelValues(bar.Symbol).Inc()
	}

	if r.archive != nil {
		if err := r.archive.Write(bars...); err != nil {
			return err
		}
	}

	return nil
}
