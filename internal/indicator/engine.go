package indicator

import (
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/timeseries"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"go.uber.org/zap"
)

// Engine computes indicator columns into a timeseries.Store and evaluates
// signal rules against the latest bar of every symbol.
type Engine struct {
	store      *timeseries.Store
	registry   IndicatorRegistry
	rules      []types.SignalRule
	ruleIndex  map[string]int
	combinator types.Combinator
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewEngine creates an engine over store. Rules are combined with AND until
// SetCombinator is called.
func NewEngine(store *timeseries.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}

	return &Engine{
		store:      store,
		registry:   NewIndicatorRegistry(),
		rules:      []types.SignalRule{},
		ruleIndex:  make(map[string]int),
		combinator: types.CombineAll,
		logger:     log,
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator stores an indicator computation. Nothing is computed until Refresh.
func (e *Engine) RegisterIndicator(name string, fn WindowFunc, period int) error {
	return e.registry.RegisterIndicator(Definition{Name: name, Fn: fn, Period: period})
}

// RegisterBuiltin registers a built-in indicator under name.
func (e *Engine) RegisterBuiltin(name string, kind Kind, period int) error {
	fn, window, err := Builtin(kind, period)
	if err != nil {
		return err
	}

	return e.RegisterIndicator(name, fn, window)
}

// Indicators returns the registered indicator names in registration order.
func (e *Engine) Indicators() []string {
	defs := e.registry.ListIndicators()
	names := make([]string, len(defs))

	for i, d := range defs {
		names[i] = d.Name
	}

	return names
}

// Refresh recomputes every registered indicator over the full content of the store.
func (e *Engine) Refresh() error {
	defs := e.registry.ListIndicators()

	for _, def := range defs {
		e.store.DeclareColumns(def.Name)

		windows, err := e.store.RollingWindow(def.Period)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "indicator %s", def.Name)
		}

		for symbol, symbolWindows := range windows {
			values := make([]optional.Option[float64], len(symbolWindows))

			for i, w := range symbolWindows {
				if w.IsNone() {
					values[i] = optional.None[float64]()

					continue
				}

				v, err := def.Fn(w.Unwrap())
				if err != nil {
					return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "indicator %s for %s", def.Name, symbol)
				}

				values[i] = optional.Some(v)
			}

			if err := e.store.SetColumn(symbol, def.Name, values); err != nil {
				return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "indicator %s for %s", def.Name, symbol)
			}
		}
	}

	e.logger.Debug("Indicators refreshed", zap.Int("indicators", len(defs)))

	return nil
}

// SetThresholdRule adds a threshold rule or replaces the one for the same indicator.
func (e *Engine) SetThresholdRule(rule types.ThresholdRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	e.setRule(rule)

	return nil
}

// SetComparisonRule adds a comparison rule or replaces the one for the same pair.
func (e *Engine) SetComparisonRule(rule types.ComparisonRule) error {
	if rule.IndicatorA == "" || rule.IndicatorB == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "comparison rule requires two indicators")
	}

	e.setRule(rule)

	return nil
}

func (e *Engine) setRule(rule types.SignalRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.ruleIndex[rule.Key()]; ok {
		e.rules[idx] = rule

		return
	}

	e.ruleIndex[rule.Key()] = len(e.rules)
	e.rules = append(e.rules, rule)
}

// Rules returns the configured rules in insertion order.
func (e *Engine) Rules() []types.SignalRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]types.SignalRule, len(e.rules))
	copy(rules, e.rules)

	return rules
}

// SetCombinator sets how the verdicts of several rules are folded. nil restores AND.
func (e *Engine) SetCombinator(c types.Combinator) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c == nil {
		c = types.CombineAll
	}

	e.combinator = c
}

// Evaluate checks every rule on the latest bar of each symbol.
// It fails with *errors.MissingIndicatorError when a rule reads a column that
// was never computed.
func (e *Engine) Evaluate() (types.SignalResult, error) {
	e.mu.RLock()
	rules := make([]types.SignalRule, len(e.rules))
	copy(rules, e.rules)
	combinator := e.combinator
	e.mu.RUnlock()

	result := types.NewSignalResult()

	for _, rule := range rules {
		if err := e.store.ColumnsExist(rule.Indicators()...); err != nil {
			var missing *errors.MissingColumnsError
			if errors.As(err, &missing) {
				return result, &errors.MissingIndicatorError{Rule: rule.Key(), Missing: missing.Missing, Cause: missing}
			}

			return result, err
		}
	}

	if len(rules) == 0 {
		return result, nil
	}

	for symbol, row := range e.store.LastRows() {
		if decide(rules, row, types.SignalSideBuy, combinator) {
			result.Buys.Add(symbol)
		}

		if decide(rules, row, types.SignalSideSell, combinator) {
			result.Sells.Add(symbol)
		}
	}

	e.logger.Debug("Signals evaluated",
		zap.Strings("buys", result.Buys.Sorted()),
		zap.Strings("sells", result.Sells.Sorted()),
	)

	return result, nil
}

func decide(rules []types.SignalRule, row types.Row, side types.SignalSide, combinator types.Combinator) bool {
	verdicts := make([]bool, 0, len(rules))

	for _, rule := range rules {
		verdict, participates := rule.Verdict(row, side)
		if participates {
			verdicts = append(verdicts, verdict)
		}
	}

	if len(verdicts) == 0 {
		return false
	}

	return combinator(verdicts)
}
