// Package config loads the robot's run configuration from a YAML file and its
// broker credentials from the environment.
package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/internal/indicator"
	"github.com/rxtech-lab/argo-robot/internal/trade"
	tradingprovider "github.com/rxtech-lab/argo-robot/internal/trading/provider"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/internal/version"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults applied by Parse.
const (
	DefaultMode         = "paper"
	DefaultBarInterval  = "1m"
	DefaultMarketClock  = "always"
	DefaultLogLevel     = "info"
	DefaultOrderLogPath = "orders.json"
)

// Config is the run configuration of a robot.
type Config struct {
	Version       string            `yaml:"version" json:"version" jsonschema:"title=Version,description=Robot version the file was written for"`
	Broker        BrokerConfig      `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Broker session settings"`
	Mode          string            `yaml:"mode" json:"mode" jsonschema:"title=Mode,description=Simulate orders or send them to the broker,enum=paper,enum=live,default=paper" validate:"required,oneof=paper live"`
	Symbols       []string          `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Symbols whose bars are fetched every cycle" validate:"required,min=1,unique,dive,required"`
	BarInterval   string            `yaml:"bar_interval" json:"bar_interval" jsonschema:"title=Bar Interval,description=Length of one bar (e.g. 1m 5m 1h 1d),default=1m"`
	MarketClock   string            `yaml:"market_clock" json:"market_clock" jsonschema:"title=Market Clock,description=Trading hours the loop follows,enum=always,enum=us-equity,enum=us-equity-extended,default=always" validate:"omitempty,oneof=always us-equity us-equity-extended"`
	ExtendedHours bool              `yaml:"extended_hours" json:"extended_hours" jsonschema:"title=Extended Hours,description=Request extended-hours bars"`
	HaltOnError   bool              `yaml:"halt_on_error" json:"halt_on_error" jsonschema:"title=Halt On Error,description=Stop the loop on the first failed cycle"`
	MaxBars       int               `yaml:"max_bars" json:"max_bars" jsonschema:"title=Max Bars,description=Bars kept in memory per symbol (0 keeps all),minimum=0" validate:"gte=0"`
	OrderLogPath  string            `yaml:"order_log_path" json:"order_log_path" jsonschema:"title=Order Log Path,description=JSON file every executed order is appended to" validate:"required"`
	ArchiveDir    string            `yaml:"archive_dir" json:"archive_dir" jsonschema:"title=Archive Directory,description=Directory of the parquet bar archive (empty disables it)"`
	MetricsAddr   string            `yaml:"metrics_addr" json:"metrics_addr" jsonschema:"title=Metrics Address,description=Listen address of the Prometheus endpoint (empty disables it)" validate:"omitempty,hostname_port"`
	LogLevel      string            `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
	Indicators    []IndicatorConfig `yaml:"indicators" json:"indicators" jsonschema:"title=Indicators" validate:"dive"`
	Rules         RulesConfig       `yaml:"rules" json:"rules" jsonschema:"title=Rules"`
	Trades        []TradeConfig     `yaml:"trades" json:"trades" jsonschema:"title=Trades,description=Buy and sell trades bound to a symbol" validate:"dive"`
	Positions     []types.Position  `yaml:"positions" json:"positions" jsonschema:"title=Positions,description=Initial ledger" validate:"dive"`
	Warmup        WarmupConfig      `yaml:"warmup" json:"warmup" jsonschema:"title=Warm-up"`
}

// BrokerConfig identifies the broker session and the account orders are placed for.
type BrokerConfig struct {
	Provider        string `yaml:"provider" json:"provider" jsonschema:"title=Provider,enum=binance-paper,enum=binance-live,enum=polygon" validate:"required,oneof=binance-paper binance-live polygon"`
	ClientID        string `yaml:"client_id" json:"client_id" jsonschema:"title=Client ID"`
	RedirectURI     string `yaml:"redirect_uri" json:"redirect_uri" jsonschema:"title=Redirect URI" validate:"omitempty,url"`
	CredentialsPath string `yaml:"credentials_path" json:"credentials_path" jsonschema:"title=Credentials Path"`
	AccountNumber   string `yaml:"account_number" json:"account_number" jsonschema:"title=Account Number" validate:"required"`
}

// IndicatorConfig registers a built-in indicator. Name defaults to kind_period
// ("close" for the close kind).
type IndicatorConfig struct {
	Name   string `yaml:"name" json:"name" jsonschema:"title=Name,description=Column name used by rules"`
	Kind   string `yaml:"kind" json:"kind" jsonschema:"title=Kind,enum=close,enum=sma,enum=ema,enum=rsi,enum=atr,enum=stddev" validate:"required,oneof=close sma ema rsi atr stddev"`
	Period int    `yaml:"period" json:"period" jsonschema:"title=Period,minimum=0" validate:"gte=0"`
}

// RulesConfig lists the signal rules and how their verdicts are combined.
type RulesConfig struct {
	Combinator  string                 `yaml:"combinator" json:"combinator" jsonschema:"title=Combinator,enum=all,enum=any,default=all" validate:"omitempty,oneof=all and any or"`
	Thresholds  []ThresholdRuleConfig  `yaml:"thresholds" json:"thresholds" validate:"dive"`
	Comparisons []ComparisonRuleConfig `yaml:"comparisons" json:"comparisons" validate:"dive"`
}

// ThresholdRuleConfig is the file form of types.ThresholdRule. Operators
// accept ge, le, gt, lt, eq or their symbols.
type ThresholdRuleConfig struct {
	Indicator     string   `yaml:"indicator" json:"indicator" validate:"required"`
	BuyThreshold  float64  `yaml:"buy" json:"buy"`
	SellThreshold float64  `yaml:"sell" json:"sell"`
	BuyOp         string   `yaml:"buy_op" json:"buy_op"`
	SellOp        string   `yaml:"sell_op" json:"sell_op"`
	BuyMax        *float64 `yaml:"buy_max" json:"buy_max,omitempty"`
	SellMax       *float64 `yaml:"sell_max" json:"sell_max,omitempty"`
	BuyMaxOp      string   `yaml:"buy_max_op" json:"buy_max_op"`
	SellMaxOp     string   `yaml:"sell_max_op" json:"sell_max_op"`
}

// ComparisonRuleConfig is the file form of types.ComparisonRule.
type ComparisonRuleConfig struct {
	IndicatorA string `yaml:"indicator_a" json:"indicator_a" validate:"required"`
	IndicatorB string `yaml:"indicator_b" json:"indicator_b" validate:"required,nefield=IndicatorA"`
	BuyOp      string `yaml:"buy_op" json:"buy_op"`
	SellOp     string `yaml:"sell_op" json:"sell_op"`
}

// TradeConfig binds the trades executed on a symbol's buy and sell signals.
type TradeConfig struct {
	Symbol string       `yaml:"symbol" json:"symbol" validate:"required"`
	Buy    *OrderConfig `yaml:"buy" json:"buy,omitempty"`
	Sell   *OrderConfig `yaml:"sell" json:"sell,omitempty"`
}

// OrderConfig describes one trade.
type OrderConfig struct {
	ID             string         `yaml:"id" json:"id" validate:"required"`
	OrderType      string         `yaml:"order_type" json:"order_type" jsonschema:"enum=MARKET,enum=LIMIT,enum=STOP,enum=STOP_LIMIT,enum=TRAILING_STOP" validate:"required"`
	EnterOrExit    string         `yaml:"enter_or_exit" json:"enter_or_exit" validate:"required,oneof=enter exit"`
	Side           string         `yaml:"side" json:"side" validate:"required,oneof=long short"`
	Price          float64        `yaml:"price" json:"price" validate:"gte=0"`
	StopLimitPrice float64        `yaml:"stop_limit_price" json:"stop_limit_price" validate:"gte=0"`
	Quantity       float64        `yaml:"quantity" json:"quantity" validate:"gt=0"`
	AssetType      string         `yaml:"asset_type" json:"asset_type" jsonschema:"enum=EQUITY,enum=CRYPTO" validate:"omitempty,oneof=EQUITY CRYPTO equity crypto"`
	Instruction    string         `yaml:"instruction" json:"instruction,omitempty" jsonschema:"description=Overrides the instruction derived from enter_or_exit and side"`
	CancelTime     *time.Time     `yaml:"cancel_time" json:"cancel_time,omitempty" jsonschema:"description=Switches the order to good-till-cancel"`
	Bracket        *BracketConfig `yaml:"bracket" json:"bracket,omitempty"`
}

// BracketConfig adds take-profit and stop-loss exits to a trade.
type BracketConfig struct {
	ProfitSize      float64 `yaml:"profit_size" json:"profit_size" validate:"gt=0"`
	IsPercentage    bool    `yaml:"is_percentage" json:"is_percentage"`
	WithoutStopLoss bool    `yaml:"without_stop_loss" json:"without_stop_loss"`
}

// WarmupConfig selects how much history is loaded before the first cycle.
type WarmupConfig struct {
	// Enabled enables history warm-up before the loop starts
	Enabled bool `yaml:"enabled" json:"enabled" jsonschema:"description=Load history before the first cycle"`

	// StartTimeType specifies how to determine the warm-up start time.
	// "date" uses StartTime as absolute time, "days" uses Days relative to now.
	StartTimeType string `yaml:"start_time_type" json:"start_time_type" jsonschema:"description=How to specify start time,enum=date,enum=days" validate:"omitempty,oneof=date days"`

	// StartTime is the absolute start time (used when StartTimeType is "date")
	StartTime time.Time `yaml:"start_time" json:"start_time" jsonschema:"description=Absolute start time (when type is date)"`

	// Days is the number of days of history to load (used when StartTimeType is "days")
	Days int `yaml:"days" json:"days" jsonschema:"description=Number of days to load (when type is days)" validate:"gte=0"`
}

// Secrets holds the broker credentials read from the environment.
type Secrets struct {
	Binance tradingprovider.BinanceProviderConfig `envPrefix:"BINANCE_"`
	Polygon tradingprovider.PolygonProviderConfig `envPrefix:"POLYGON_"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadSecrets reads a .env file when one exists and parses the environment.
func LoadSecrets(envFiles ...string) (*Secrets, error) {
	_ = godotenv.Load(envFiles...)

	secrets := &Secrets{}
	if err := env.Parse(secrets); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse environment", err)
	}

	return secrets, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}

	if c.BarInterval == "" {
		c.BarInterval = DefaultBarInterval
	}

	if c.MarketClock == "" {
		c.MarketClock = DefaultMarketClock
	}

	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}

	if c.OrderLogPath == "" {
		c.OrderLogPath = DefaultOrderLogPath
	}

	for i := range c.Indicators {
		if c.Indicators[i].Name == "" {
			c.Indicators[i].Name = indicator.ColumnName(indicator.Kind(c.Indicators[i].Kind), c.Indicators[i].Period)
		}
	}
}

// Validate checks the struct tags and the file's version, then that every
// rule operator parses and every trade belongs to a configured symbol.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
		return err
	}

	if _, err := c.ThresholdRules(); err != nil {
		return err
	}

	if _, err := c.ComparisonRules(); err != nil {
		return err
	}

	symbols := types.NewSymbolSet(c.Symbols...)
	seen := types.NewSymbolSet()

	for _, t := range c.Trades {
		if !symbols.Contains(t.Symbol) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "trade symbol %s is not in symbols", t.Symbol)
		}

		if seen.Contains(t.Symbol) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "symbol %s has more than one trade binding", t.Symbol)
		}

		seen.Add(t.Symbol)

		if t.Buy == nil && t.Sell == nil {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "trade binding for %s has neither a buy nor a sell trade", t.Symbol)
		}
	}

	return nil
}

// ThresholdRules converts the configured threshold rules.
func (c *Config) ThresholdRules() ([]types.ThresholdRule, error) {
	rules := make([]types.ThresholdRule, 0, len(c.Rules.Thresholds))

	for _, r := range c.Rules.Thresholds {
		rule, err := r.Rule()
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// ComparisonRules converts the configured comparison rules.
func (c *Config) ComparisonRules() ([]types.ComparisonRule, error) {
	rules := make([]types.ComparisonRule, 0, len(c.Rules.Comparisons))

	for _, r := range c.Rules.Comparisons {
		rule, err := r.Rule()
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

// Rule converts r and checks it.
func (r ThresholdRuleConfig) Rule() (types.ThresholdRule, error) {
	buyOp, err := parseOperator(r.BuyOp)
	if err != nil {
		return types.ThresholdRule{}, err
	}

	sellOp, err := parseOperator(r.SellOp)
	if err != nil {
		return types.ThresholdRule{}, err
	}

	buyMaxOp, err := parseOperator(r.BuyMaxOp)
	if err != nil {
		return types.ThresholdRule{}, err
	}

	sellMaxOp, err := parseOperator(r.SellMaxOp)
	if err != nil {
		return types.ThresholdRule{}, err
	}

	rule := types.ThresholdRule{
		Indicator:     r.Indicator,
		BuyThreshold:  r.BuyThreshold,
		SellThreshold: r.SellThreshold,
		BuyOp:         buyOp,
		SellOp:        sellOp,
		BuyMax:        optionalFloat(r.BuyMax),
		SellMax:       optionalFloat(r.SellMax),
		BuyMaxOp:      buyMaxOp,
		SellMaxOp:     sellMaxOp,
	}

	if err := rule.Validate(); err != nil {
		return types.ThresholdRule{}, err
	}

	return rule, nil
}

// Rule converts r.
func (r ComparisonRuleConfig) Rule() (types.ComparisonRule, error) {
	buyOp, err := parseOperator(r.BuyOp)
	if err != nil {
		return types.ComparisonRule{}, err
	}

	sellOp, err := parseOperator(r.SellOp)
	if err != nil {
		return types.ComparisonRule{}, err
	}

	return types.ComparisonRule{
		IndicatorA: r.IndicatorA,
		IndicatorB: r.IndicatorB,
		BuyOp:      buyOp,
		SellOp:     sellOp,
	}, nil
}

// Build creates the trade for symbol.
func (o OrderConfig) Build(symbol string) (*trade.Trade, error) {
	enterOrExit, err := types.ParseEnterOrExit(o.EnterOrExit)
	if err != nil {
		return nil, err
	}

	side, err := types.ParseSide(o.Side)
	if err != nil {
		return nil, err
	}

	t, err := trade.NewTrade(o.ID, o.OrderType, enterOrExit, side, o.Price, o.StopLimitPrice)
	if err != nil {
		return nil, err
	}

	if err := t.SetInstrument(symbol, o.Quantity, types.AssetType(strings.ToUpper(o.AssetType))); err != nil {
		return nil, err
	}

	if o.Instruction != "" {
		if err := t.ModifySide(optional.Some(types.Instruction(strings.ToUpper(o.Instruction)))); err != nil {
			return nil, err
		}
	}

	if o.CancelTime != nil {
		if err := t.GoodTillCancel(*o.CancelTime); err != nil {
			return nil, err
		}
	}

	if o.Bracket != nil {
		if err := t.AddBracket(o.Bracket.ProfitSize, o.Bracket.IsPercentage, o.Bracket.WithoutStopLoss); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Range returns the warm-up window ending at now.
func (c WarmupConfig) Range(now time.Time) (time.Time, time.Time, error) {
	switch c.StartTimeType {
	case "date":
		if c.StartTime.IsZero() || !c.StartTime.Before(now) {
			return time.Time{}, time.Time{}, errors.New(errors.ErrCodeInvalidConfiguration, "warm-up start time must be in the past")
		}

		return c.StartTime, now, nil
	case "days", "":
		if c.Days <= 0 {
			return time.Time{}, time.Time{}, errors.New(errors.ErrCodeInvalidConfiguration, "warm-up days must be positive")
		}

		return now.AddDate(0, 0, -c.Days), now, nil
	default:
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown warm-up start time type %q", c.StartTimeType)
	}
}

// Schema returns the JSON schema of the configuration file.
func Schema() (string, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "argo-robot-config"
	schema.Description = "Configuration schema for argo-robot"

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return string(raw), nil
}

func parseOperator(s string) (optional.Option[types.Operator], error) {
	if s == "" {
		return optional.None[types.Operator](), nil
	}

	op, err := types.ParseOperator(s)
	if err != nil {
		return optional.None[types.Operator](), err
	}

	return optional.Some(op), nil
}

func optionalFloat(v *float64) optional.Option[float64] {
	if v == nil {
		return optional.None[float64]()
	}

	return optional.Some(*v)
}
