// Package execution turns buy and sell signals into submitted (or simulated)
// orders, keeps the position ledger's ownership flags in step and records every
// order response in the order log.
package execution

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/metrics"
	"github.com/rxtech-lab/argo-robot/internal/portfolio"
	"github.com/rxtech-lab/argo-robot/internal/trade"
	tradingprovider "github.com/rxtech-lab/argo-robot/internal/trading/provider"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"go.uber.org/zap"
)

// Mode selects between simulated and real submission.
type Mode string

const (
	// ModePaper simulates every order; the order id is the trade's client order id.
	ModePaper Mode = "paper"
	// ModeLive submits orders to the broker.
	ModeLive Mode = "live"
)

// Coordinator executes the trades bound to signalled symbols.
type Coordinator struct {
	ledger      *portfolio.Ledger
	placer      tradingprovider.OrderPlacer
	orderLog    OrderStore
	account     string
	mode        Mode
	now         func() time.Time
	logger      *logger.Logger
	orderLogger *logger.Logger
}

// NewCoordinator creates a coordinator. placer may be nil in paper mode.
func NewCoordinator(
	ledger *portfolio.Ledger,
	placer tradingprovider.OrderPlacer,
	orderLog OrderStore,
	account string,
	mode Mode,
	log *logger.Logger,
) (*Coordinator, error) {
	if ledger == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "position ledger is required")
	}

	if orderLog == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "order log is required")
	}

	switch mode {
	case ModePaper:
	case ModeLive:
		if placer == nil {
			return nil, errors.New(errors.ErrCodeMissingParameter, "live mode requires an order placer")
		}
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown execution mode %q", mode)
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Coordinator{
		ledger:      ledger,
		placer:      placer,
		orderLog:    orderLog,
		account:     account,
		mode:        mode,
		now:         time.Now,
		logger:      log,
		orderLogger: log.Named("orderlog"),
	}, nil
}

// Mode returns the execution mode.
func (c *Coordinator) Mode() Mode {
	return c.mode
}

// ExecuteSignals executes the buy trades of every bound buy symbol. Sell trades
// are executed only when there are no buy signals at all. Symbols are visited in
// ascending order and at most once per cycle.
//
// The responses produced are saved to the order log even when a submission
// fails. A submission failure stops the cycle and is returned as the error.
// A failed save is logged on the orderlog channel and returned with the responses.
func (c *Coordinator) ExecuteSignals(ctx context.Context, signals types.SignalResult, bindings Bindings) ([]types.OrderResponse, error) {
	var (
		responses []types.OrderResponse
		execErr   error
	)

	switch {
	case len(signals.Buys) > 0:
		responses, execErr = c.executeSide(ctx, true, signals.Buys, bindings)
	case len(signals.Sells) > 0:
		responses, execErr = c.executeSide(ctx, false, signals.Sells, bindings)
	default:
		return []types.OrderResponse{}, nil
	}

	if len(responses) == 0 {
		return responses, execErr
	}

	if err := c.orderLog.SaveOrders(responses); err != nil {
		metrics.OrderLogFailuresTotal.Inc()
		c.orderLogger.Error("Failed to save order responses",
			zap.Int("count", len(responses)),
			zap.Error(err),
		)

		if execErr == nil {
			execErr = errors.Wrap(errors.ErrCodeOrderLogWriteFailed, "failed to save order responses", err)
		}
	}

	return responses, execErr
}

func (c *Coordinator) executeSide(ctx context.Context, buy bool, symbols types.SymbolSet, bindings Bindings) ([]types.OrderResponse, error) {
	side := string(types.SignalSideSell)
	if buy {
		side = string(types.SignalSideBuy)
	}

	responses := []types.OrderResponse{}

	for _, symbol := range symbols.Sorted() {
		binding, ok := bindings[symbol]
		if !ok {
			continue
		}

		if binding.HasExecuted {
			c.logger.Debug("Trade already executed this cycle", zap.String("symbol", symbol), zap.String("side", side))

			continue
		}

		if c.ledger.InPortfolio(symbol) && c.ledger.IsOwned(symbol) == buy {
			c.logger.Debug("Skipping signal due to ownership",
				zap.String("symbol", symbol),
				zap.String("side", side),
				zap.Bool("owned", c.ledger.IsOwned(symbol)),
			)

			continue
		}

		t := binding.TradeFor(buy)
		if t == nil {
			c.logger.Debug("No trade bound for signal", zap.String("symbol", symbol), zap.String("side", side))

			continue
		}

		var (
			resp types.OrderResponse
			err  error
		)

		if c.mode == ModePaper {
			resp, err = c.simulateOrder(t)
		} else {
			resp, err = c.ExecuteOrder(ctx, t)
		}

		if err != nil {
			metrics.OrderFailuresTotal.WithLabelValues(symbol).Inc()
			c.logger.Error("Order submission failed",
				zap.String("symbol", symbol),
				zap.String("side", side),
				zap.String("trade_id", t.ID()),
				zap.Error(err),
			)

			return responses, err
		}

		binding.HasExecuted = true
		c.ledger.SetOwnership(symbol, buy)

		metrics.OrdersTotal.WithLabelValues(symbol, side, string(c.mode)).Inc()
		c.logger.Info("Order executed",
			zap.String("symbol", symbol),
			zap.String("side", side),
			zap.String("mode", string(c.mode)),
			zap.String("order_id", resp.OrderID),
		)

		responses = append(responses, resp)
	}

	return responses, nil
}

// ExecuteOrder submits the trade's order to the broker and attaches the
// response to the trade. There is no retry.
func (c *Coordinator) ExecuteOrder(ctx context.Context, t *trade.Trade) (types.OrderResponse, error) {
	if !t.Ready() {
		return types.OrderResponse{}, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s has no instrument configured", t.ID()) //nolint:exhaustruct
	}

	if c.placer == nil {
		return types.OrderResponse{}, errors.Newf(errors.ErrCodeOrderFailed, "no order placer configured for trade %s", t.ID()) //nolint:exhaustruct
	}

	order := t.Order()

	result, err := c.placer.PlaceOrder(ctx, c.account, order)
	if err != nil {
		return types.OrderResponse{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to submit trade %s", t.ID()) //nolint:exhaustruct
	}

	resp := types.OrderResponse{
		OrderID:     result.OrderID,
		RequestBody: order,
		Timestamp:   c.now().UTC(),
	}
	t.AttachResponse(resp)

	return resp, nil
}

func (c *Coordinator) simulateOrder(t *trade.Trade) (types.OrderResponse, error) {
	if !t.Ready() {
		return types.OrderResponse{}, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s has no instrument configured", t.ID()) //nolint:exhaustruct
	}

	resp := types.OrderResponse{
		OrderID:     t.ClientOrderID(),
		RequestBody: t.Order(),
		Timestamp:   c.now().UTC(),
	}
	t.AttachResponse(resp)

	return resp, nil
}
