package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

const sampleConfig = `
broker:
  provider: binance-paper
  client_id: robot
  redirect_uri: https://localhost/callback
  credentials_path: ./credentials.json
  account_number: "123456789"
mode: paper
symbols: [BTCUSDT, ETHUSDT]
bar_interval: 5m
market_clock: always
order_log_path: data/orders.json
metrics_addr: localhost:9100
indicators:
  - kind: sma
    period: 20
  - name: fast
    kind: ema
    period: 5
  - kind: rsi
    period: 14
rules:
  combinator: any
  thresholds:
    - indicator: rsi_14
      buy: 30
      buy_op: "<="
      sell: 70
      sell_op: ge
      buy_max: 10
      buy_max_op: ">="
  comparisons:
    - indicator_a: fast
      indicator_b: sma_20
      buy_op: gt
      sell_op: lt
trades:
  - symbol: BTCUSDT
    buy:
      id: btc-buy
      order_type: LIMIT
      enter_or_exit: enter
      side: long
      price: 42000
      quantity: 0.01
      asset_type: crypto
      bracket:
        profit_size: 5
        is_percentage: true
    sell:
      id: btc-sell
      order_type: mkt
      enter_or_exit: exit
      side: long
      quantity: 0.01
positions:
  - symbol: BTCUSDT
    quantity: 0.01
    price: 40000
    owned: true
warmup:
  enabled: true
  start_time_type: days
  days: 2
`

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParse() {
	cfg, err := Parse([]byte(sampleConfig))
	suite.Require().NoError(err)

	suite.Equal("binance-paper", cfg.Broker.Provider)
	suite.Equal("123456789", cfg.Broker.AccountNumber)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	suite.Equal("5m", cfg.BarInterval)
	suite.Equal(DefaultLogLevel, cfg.LogLevel)

	suite.Require().Len(cfg.Indicators, 3)
	suite.Equal("sma_20", cfg.Indicators[0].Name)
	suite.Equal("fast", cfg.Indicators[1].Name)
	suite.Equal("rsi_14", cfg.Indicators[2].Name)

	suite.Require().Len(cfg.Trades, 1)
	suite.Require().NotNil(cfg.Trades[0].Buy.Bracket)
	suite.True(cfg.Trades[0].Buy.Bracket.IsPercentage)

	suite.Require().Len(cfg.Positions, 1)
	suite.True(cfg.Positions[0].Owned)

	suite.True(cfg.Warmup.Enabled)
	suite.Equal(2, cfg.Warmup.Days)
}

func (suite *ConfigTestSuite) TestParse_Defaults() {
	cfg, err := Parse([]byte(`
broker:
  provider: polygon
  account_number: "1"
symbols: [SPY]
`))
	suite.Require().NoError(err)

	suite.Equal(DefaultMode, cfg.Mode)
	suite.Equal(DefaultBarInterval, cfg.BarInterval)
	suite.Equal(DefaultMarketClock, cfg.MarketClock)
	suite.Equal(DefaultOrderLogPath, cfg.OrderLogPath)
	suite.False(cfg.Warmup.Enabled)
}

func (suite *ConfigTestSuite) TestParse_Invalid() {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "malformed yaml",
			yaml: "symbols: [SPY",
		},
		{
			name: "no symbols",
			yaml: "broker: {provider: polygon, account_number: '1'}",
		},
		{
			name: "unknown provider",
			yaml: "broker: {provider: ib, account_number: '1'}\nsymbols: [SPY]",
		},
		{
			name: "unknown mode",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\nmode: dry",
		},
		{
			name: "duplicate symbols",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY, SPY]",
		},
		{
			name: "unknown operator",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\nrules: {thresholds: [{indicator: rsi_14, buy_op: '=<'}]}",
		},
		{
			name: "max without operator",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\nrules: {thresholds: [{indicator: rsi_14, buy_op: le, buy_max: 5}]}",
		},
		{
			name: "trade for unknown symbol",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\ntrades: [{symbol: QQQ, buy: {id: a, order_type: MARKET, enter_or_exit: enter, side: long, quantity: 1}}]",
		},
		{
			name: "empty trade binding",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\ntrades: [{symbol: SPY}]",
		},
		{
			name: "config from a newer major version",
			yaml: "version: 99.0.0\nbroker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]",
		},
		{
			name: "unknown indicator kind",
			yaml: "broker: {provider: polygon, account_number: '1'}\nsymbols: [SPY]\nindicators: [{kind: macd, period: 12}]",
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := Parse([]byte(tt.yaml))
			suite.Error(err)
		})
	}
}

func (suite *ConfigTestSuite) TestRules() {
	cfg, err := Parse([]byte(sampleConfig))
	suite.Require().NoError(err)

	thresholds, err := cfg.ThresholdRules()
	suite.Require().NoError(err)
	suite.Require().Len(thresholds, 1)
	suite.Equal(types.OperatorLE, thresholds[0].BuyOp.Unwrap())
	suite.Equal(types.OperatorGE, thresholds[0].SellOp.Unwrap())
	suite.InDelta(10.0, thresholds[0].BuyMax.Unwrap(), 1e-9)
	suite.True(thresholds[0].SellMax.IsNone())

	comparisons, err := cfg.ComparisonRules()
	suite.Require().NoError(err)
	suite.Require().Len(comparisons, 1)
	suite.Equal("fast_comp_sma_20", comparisons[0].Key())
	suite.Equal(types.OperatorGT, comparisons[0].BuyOp.Unwrap())
}

func (suite *ConfigTestSuite) TestOrderConfigBuild() {
	cfg, err := Parse([]byte(sampleConfig))
	suite.Require().NoError(err)

	buy, err := cfg.Trades[0].Buy.Build("BTCUSDT")
	suite.Require().NoError(err)
	suite.True(buy.Ready())
	suite.True(buy.BracketApplied())

	order := buy.Order()
	suite.Equal(types.OrderTypeLimit, order.OrderType)
	suite.Equal(types.InstructionBuy, order.OrderLegCollection[0].Instruction)
	suite.Equal(types.AssetTypeCrypto, order.OrderLegCollection[0].Instrument.AssetType)

	sell, err := cfg.Trades[0].Sell.Build("BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(types.OrderTypeMarket, sell.Order().OrderType)
	suite.Equal(types.InstructionSell, sell.Order().OrderLegCollection[0].Instruction)
}

func (suite *ConfigTestSuite) TestOrderConfigBuild_Options() {
	cancel := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	o := OrderConfig{
		ID:          "short",
		OrderType:   "MARKET",
		EnterOrExit: "enter",
		Side:        "long",
		Quantity:    2,
		Instruction: "sell_short",
		CancelTime:  &cancel,
	}

	t, err := o.Build("SPY")
	suite.Require().NoError(err)

	order := t.Order()
	suite.Equal(types.InstructionSellShort, order.OrderLegCollection[0].Instruction)
	suite.Equal(types.DurationGoodTillCancel, order.Duration)
	suite.Equal("2024-06-01T20:00:00Z", order.CancelTime)
	suite.Equal(types.AssetTypeEquity, order.OrderLegCollection[0].Instrument.AssetType)

	o.EnterOrExit = "hold"
	_, err = o.Build("SPY")
	suite.True(errors.IsInvalidOrderConfigError(err))
}

func (suite *ConfigTestSuite) TestWarmupRange() {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

	start, end, err := WarmupConfig{Enabled: true, StartTimeType: "days", Days: 3}.Range(now)
	suite.Require().NoError(err)
	suite.Equal(now.AddDate(0, 0, -3), start)
	suite.Equal(now, end)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start, _, err = WarmupConfig{Enabled: true, StartTimeType: "date", StartTime: from}.Range(now)
	suite.Require().NoError(err)
	suite.Equal(from, start)

	_, _, err = WarmupConfig{StartTimeType: "date", StartTime: now.Add(time.Hour)}.Range(now)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, _, err = WarmupConfig{StartTimeType: "days"}.Range(now)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, _, err = WarmupConfig{StartTimeType: "weeks", Days: 1}.Range(now)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoad() {
	path := filepath.Join(suite.T().TempDir(), "robot.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Equal("data/orders.json", cfg.OrderLogPath)

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestLoadSecrets() {
	envFile := filepath.Join(suite.T().TempDir(), ".env")
	suite.Require().NoError(os.WriteFile(envFile, []byte("POLYGON_API_KEY=from-file\n"), 0o600))

	suite.T().Setenv("BINANCE_API_KEY", "key")
	suite.T().Setenv("BINANCE_SECRET_KEY", "secret")
	// registered for cleanup, then cleared so the .env file can set it
	suite.T().Setenv("POLYGON_API_KEY", "")
	suite.Require().NoError(os.Unsetenv("POLYGON_API_KEY"))

	secrets, err := LoadSecrets(envFile)
	suite.Require().NoError(err)
	suite.Equal("key", secrets.Binance.ApiKey)
	suite.Equal("secret", secrets.Binance.SecretKey)
	suite.Equal("from-file", secrets.Polygon.ApiKey)
	suite.NoError(secrets.Binance.Validate())
}

func (suite *ConfigTestSuite) TestSchema() {
	raw, err := Schema()
	suite.Require().NoError(err)

	var schema map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(raw), &schema))
	suite.Equal("argo-robot-config", schema["title"])

	properties, ok := schema["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "symbols")
	suite.Contains(properties, "trades")
	suite.Contains(properties, "warmup")
}
