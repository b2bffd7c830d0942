package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/config"
	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/metrics"
	"github.com/rxtech-lab/argo-robot/internal/trading/engine"
	tradingprovider "github.com/rxtech-lab/argo-robot/internal/trading/provider"
	"github.com/rxtech-lab/argo-robot/internal/version"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	configFlag = &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the robot configuration `FILE`",
		Required: true,
	}
	envFlag = &cli.StringFlag{
		Name:  "env",
		Usage: "Path to a .env file with broker credentials",
		Value: ".env",
	}
)

// session is what every command that talks to a broker needs.
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	broker tradingprovider.Broker
	robot  *engine.Robot
}

func newSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	secrets, err := config.LoadSecrets(cmd.String("env"))
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	broker, err := tradingprovider.NewBroker(tradingprovider.ProviderType(cfg.Broker.Provider), secrets.Binance, secrets.Polygon)
	if err != nil {
		return nil, err
	}

	if err := broker.Login(ctx); err != nil {
		return nil, err
	}

	robot, err := engine.NewRobotFromConfig(cfg, broker, log)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: log, broker: broker, robot: robot}, nil
}

func (s *session) close() {
	if err := s.robot.Close(); err != nil {
		s.log.Warn("Failed to close robot", zap.Error(err))
	}

	_ = s.log.Sync()
}

// warmup loads the configured history, drawing a progress bar per symbol.
func (s *session) warmup(ctx context.Context, warmup config.WarmupConfig) error {
	start, end, err := warmup.Range(time.Now())
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(s.robot.Symbols()),
		progressbar.OptionSetDescription("Loading history"),
		progressbar.OptionShowCount(),
	)

	onProgress := engine.OnWarmupProgressCallback(func(current, _ float64, message string) {
		bar.Describe(fmt.Sprintf("Loaded %s", message))
		_ = bar.Set(int(current))
	})

	if err := s.robot.Warmup(ctx, start, end, &onProgress); err != nil {
		return err
	}

	_ = bar.Finish()
	fmt.Println()

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if s.cfg.MetricsAddr != "" {
		srv := metrics.Serve(s.cfg.MetricsAddr)
		defer srv.Close()

		s.log.Info("Serving metrics", zap.String("addr", s.cfg.MetricsAddr))
	}

	if s.cfg.Warmup.Enabled {
		if err := s.warmup(ctx, s.cfg.Warmup); err != nil {
			return err
		}
	}

	onStart := engine.OnEngineStartCallback(func(symbols []string, interval time.Duration) error {
		fmt.Printf("Robot started: symbols=%v, interval=%s\n", symbols, interval)

		return nil
	})
	onStop := engine.OnEngineStopCallback(func(err error) {
		if err != nil {
			fmt.Printf("Robot stopped with error: %v\n", err)
		} else {
			fmt.Println("Robot stopped")
		}
	})
	onCycle := engine.OnCycleCallback(func(result engine.CycleResult) error {
		for _, bar := range result.Bars {
			fmt.Printf("[%s] %s: O=%.4f H=%.4f L=%.4f C=%.4f V=%.2f\n",
				bar.Time.Format("15:04:05"), bar.Symbol,
				bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}

		for _, resp := range result.Responses {
			fmt.Printf("Order placed: %s %s\n", resp.OrderID, resp.RequestBody.Symbol())
		}

		return nil
	})
	onError := engine.OnErrorCallback(func(err error) {
		fmt.Printf("Error: %v\n", err)
	})

	return s.robot.Run(ctx, engine.Callbacks{
		OnEngineStart: &onStart,
		OnEngineStop:  &onStop,
		OnCycle:       &onCycle,
		OnError:       &onError,
	})
}

func historyAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	warmup := s.cfg.Warmup
	if days := cmd.Int("days"); days > 0 {
		warmup = config.WarmupConfig{Enabled: true, StartTimeType: "days", StartTime: time.Time{}, Days: int(days)}
	}

	if err := s.warmup(ctx, warmup); err != nil {
		return err
	}

	quotes, err := s.robot.Quotes(ctx)
	if err != nil {
		return err
	}

	for symbol, quote := range quotes {
		fmt.Printf("%s: %.4f\n", symbol, quote.LastPrice)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	if provider := cmd.String("provider"); provider != "" {
		schema, err := tradingprovider.GetProviderConfigSchema(provider)
		if err != nil {
			return err
		}

		fmt.Println(schema)

		return nil
	}

	schema, err := config.Schema()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

func providersAction(_ context.Context, _ *cli.Command) error {
	for _, name := range tradingprovider.GetSupportedProviders() {
		info, err := tradingprovider.GetProviderInfo(name)
		if err != nil {
			return err
		}

		fmt.Printf("%-15s %s (orders: %t, paper: %t)\n", info.Name, info.Description, info.PlacesOrders, info.IsPaperTrading)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "robot",
		Usage:   "Indicator-driven trading robot",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Warm up and run the trading loop until the market closes",
				Flags:  []cli.Flag{configFlag, envFlag},
				Action: runAction,
			},
			{
				Name:  "history",
				Usage: "Load history into the archive and print the ledger quotes",
				Flags: []cli.Flag{
					configFlag,
					envFlag,
					&cli.IntFlag{
						Name:  "days",
						Usage: "Days of history to load; overrides the warm-up configuration",
					},
				},
				Action: historyAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "provider",
						Usage: "Print the credential schema of a provider instead",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported broker providers",
				Action: providersAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
