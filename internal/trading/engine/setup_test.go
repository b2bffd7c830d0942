package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/config"
	"github.com/rxtech-lab/argo-robot/internal/logger"
	"github.com/rxtech-lab/argo-robot/internal/trading/execution"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/mocks"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SetupTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	broker *mocks.MockBroker
	dir    string
}

func TestSetupSuite(t *testing.T) {
	suite.Run(t, new(SetupTestSuite))
}

func (suite *SetupTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.broker = mocks.NewMockBroker(suite.ctrl)
	suite.dir = suite.T().TempDir()
}

func (suite *SetupTestSuite) parse(extra string) *config.Config {
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
broker:
  provider: binance-paper
  account_number: "42"
mode: paper
symbols: [ETHUSDT, BTCUSDT]
market_clock: us-equity
order_log_path: %s
indicators:
  - kind: sma
    period: 2
rules:
  thresholds:
    - indicator: sma_2
      buy: 100
      buy_op: ge
trades:
  - symbol: BTCUSDT
    buy:
      id: btc-buy
      order_type: MARKET
      enter_or_exit: enter
      side: long
      quantity: 1
      asset_type: crypto
positions:
  - symbol: BTCUSDT
    quantity: 0
    price: 0
%s`, filepath.Join(suite.dir, "orders.json"), extra)))
	suite.Require().NoError(err)

	return cfg
}

func (suite *SetupTestSuite) TestNewRobotFromConfig() {
	robot, err := NewRobotFromConfig(suite.parse(""), suite.broker, logger.NewNop())
	suite.Require().NoError(err)
	defer robot.Close()

	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, robot.Symbols())
	suite.Equal(time.Minute, robot.config.BarInterval)
	suite.Equal(USEquityClock{ExtendedHours: false}, robot.clock)
	suite.Equal(execution.ModePaper, robot.coordinator.Mode())
	suite.Equal([]string{"sma_2"}, robot.indicators.Indicators())
	suite.Len(robot.indicators.Rules(), 1)
	suite.True(robot.ledger.InPortfolio("BTCUSDT"))
	suite.Nil(robot.archive)

	binding, ok := robot.Bindings()["BTCUSDT"]
	suite.Require().True(ok)
	suite.NotNil(binding.Buy)
	suite.Nil(binding.Sell)
}

func (suite *SetupTestSuite) TestNewRobotFromConfig_InvalidInterval() {
	cfg := suite.parse("")
	cfg.BarInterval = "10s"

	_, err := NewRobotFromConfig(cfg, suite.broker, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimespan))
}

func (suite *SetupTestSuite) TestNewRobotFromConfig_WithArchive() {
	cfg := suite.parse("archive_dir: " + filepath.Join(suite.dir, "archive"))

	robot, err := NewRobotFromConfig(cfg, suite.broker, logger.NewNop())
	suite.Require().NoError(err)
	defer robot.Close()

	suite.Require().NotNil(robot.archive)

	robot.now = func() time.Time { return time.Date(2024, 1, 2, 15, 0, 30, 0, time.UTC) }
	start := time.Date(2024, 1, 2, 14, 58, 0, 0, time.UTC)

	suite.broker.EXPECT().GetPriceHistory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req types.PriceHistoryRequest) (types.PriceHistory, error) {
			return mocks.PriceHistoryFromBars(req.Symbol, mocks.BarsFromCloses(req.Symbol, start, 99, 101)), nil
		}).
		Times(4)

	suite.Require().NoError(robot.Warmup(context.Background(), start, robot.now(), nil))

	// BTCUSDT is in the ledger but not owned, so the buy goes through
	result, err := robot.RunCycle(context.Background())
	suite.Require().NoError(err)
	suite.Len(result.Bars, 2)
	suite.True(result.Signals.Buys.Contains("BTCUSDT"))
	suite.True(result.Signals.Buys.Contains("ETHUSDT"))
	suite.Len(result.Responses, 1)
	suite.True(robot.ledger.IsOwned("BTCUSDT"))

	barArchive, ok := robot.archive.(interface{ Count() (int, error) })
	suite.Require().True(ok)

	count, err := barArchive.Count()
	suite.Require().NoError(err)
	suite.Equal(4, count)
}
