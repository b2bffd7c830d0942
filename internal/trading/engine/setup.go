package engine

import (
	"github.com/rxtech-lab/argo-robot/internal/archive"
	"github.com/rxtech-lab/argo-robot/internal/config"
	"github.com/rxtech-lab/argo-robot/internal/indicator"
	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/portfolio"
	"github.com/rxtech-lab/argo-robot/internal/timeseries"
	"github.com/rxtech-lab/argo-robot/internal/trade"
	"github.com/rxtech-lab/argo-robot/internal/trading/execution"
	tradingprovider "github.com/rxtech-lab/argo-robot/internal/trading/provider"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"go.uber.org/zap"
)

// NewRobotFromConfig builds every run-scoped component described by cfg and
// wires them to broker. The caller logs the broker in and closes the robot.
func NewRobotFromConfig(cfg *config.Config, broker tradingprovider.Broker, log *logger.Logger) (*Robot, error) {
	if log == nil {
		log = logger.NewNop()
	}

	interval, err := ParseInterval(cfg.BarInterval)
	if err != nil {
		return nil, err
	}

	clock, err := NewMarketClock(cfg.MarketClock)
	if err != nil {
		return nil, err
	}

	ledger := portfolio.NewLedger(cfg.Broker.AccountNumber)
	if err := ledger.NewPositionCollection(cfg.Positions); err != nil {
		return nil, err
	}

	store := timeseries.NewStore(cfg.MaxBars)

	indicators, err := newIndicatorEngine(cfg, store, log)
	if err != nil {
		return nil, err
	}

	bindings, err := newBindings(cfg.Trades)
	if err != nil {
		return nil, err
	}

	coordinator, err := execution.NewCoordinator(
		ledger,
		broker,
		execution.NewOrderLog(cfg.OrderLogPath),
		cfg.Broker.AccountNumber,
		execution.Mode(cfg.Mode),
		log.Named("execution"),
	)
	if err != nil {
		return nil, err
	}

	deps := Dependencies{
		MarketData:  broker,
		Store:       store,
		Indicators:  indicators,
		Coordinator: coordinator,
		Ledger:      ledger,
		Bindings:    bindings,
		Archive:     nil,
		Clock:       clock,
		Logger:      log.Named("robot"),
	}

	var barArchive *archive.BarArchive

	if cfg.ArchiveDir != "" {
		barArchive = archive.NewBarArchive(cfg.ArchiveDir, cfg.Broker.Provider, cfg.BarInterval)
		if err := barArchive.Initialize(); err != nil {
			return nil, err
		}

		deps.Archive = barArchive

		log.Info("Bar archive enabled", zap.String("path", barArchive.OutputPath()))
	}

	robot, err := NewRobot(RobotConfig{
		Symbols:       cfg.Symbols,
		BarInterval:   interval,
		LatestWindow:  DefaultLatestWindow,
		RetryInterval: DefaultRetryInterval,
		ExtendedHours: cfg.ExtendedHours,
		HaltOnError:   cfg.HaltOnError,
	}, deps)
	if err != nil {
		if barArchive != nil {
			_ = barArchive.Close()
		}

		return nil, err
	}

	return robot, nil
}

func newIndicatorEngine(cfg *config.Config, store *timeseries.Store, log *logger.Logger) (*indicator.Engine, error) {
	engine := indicator.NewEngine(store, log.Named("indicator"))

	for _, ind := range cfg.Indicators {
		if err := engine.RegisterBuiltin(ind.Name, indicator.Kind(ind.Kind), ind.Period); err != nil {
			return nil, err
		}
	}

	combinator, err := types.ParseCombinator(cfg.Rules.Combinator)
	if err != nil {
		return nil, err
	}

	engine.SetCombinator(combinator)

	thresholds, err := cfg.ThresholdRules()
	if err != nil {
		return nil, err
	}

	for _, rule := range thresholds {
		if err := engine.SetThresholdRule(rule); err != nil {
			return nil, err
		}
	}

	comparisons, err := cfg.ComparisonRules()
	if err != nil {
		return nil, err
	}

	for _, rule := range comparisons {
		if err := engine.SetComparisonRule(rule); err != nil {
			return nil, err
		}
	}

	return engine, nil
}

func newBindings(trades []config.TradeConfig) (execution.Bindings, error) {
	bindings := execution.Bindings{}

	for _, tc := range trades {
		var buy, sell *trade.Trade

		if tc.Buy != nil {
			t, err := tc.Buy.Build(tc.Symbol)
			if err != nil {
				return nil, err
			}

			buy = t
		}

		if tc.Sell != nil {
			t, err := tc.Sell.Build(tc.Symbol)
			if err != nil {
				return nil, err
			}

			sell = t
		}

		bindings.Bind(tc.Symbol, buy, sell)
	}

	return bindings, nil
}
