package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/types"
)

// BarGenerator produces synthetic bars and broker price histories for tests.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a generator. A fixed seed gives reproducible bars.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)), //nolint:gosec
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the ticker (e.g., "AAPL", "BTCUSDT")
	Symbol string
	// StartTime is the time of the first bar
	StartTime time.Time
	// Interval is the duration between bars
	Interval time.Duration
	// Count is the number of bars
	Count int
	// InitialPrice is the first open
	InitialPrice float64
	// Volatility is the per-bar standard deviation of returns (0.002 = 0.2%)
	Volatility float64
	// Trend is the total drift over the series
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultConfig returns one trading day of minute bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        390,
		InitialPrice: 100.0,
		Volatility:   0.002,
		Trend:        0.0,
		VolumeBase:   10000,
	}
}

// Generate creates bars following a geometric random walk.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	t := config.StartTime

	for i := range bars {
		open := price

		// Box-Muller transform for a normal return
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + config.Volatility*z + config.Trend/float64(config.Count))
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + g.rng.Float64()*config.Volatility*open*0.5
		low := math.Min(open, closePrice) - g.rng.Float64()*config.Volatility*open*0.5
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		bars[i] = types.Bar{
			Symbol: config.Symbol,
			Time:   t,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(config.VolumeBase*(0.7+g.rng.Float64()*0.6), 2),
		}

		price = closePrice
		t = t.Add(config.Interval)
	}

	return bars
}

// PriceHistory wraps generated bars in a broker answer.
func (g *BarGenerator) PriceHistory(config GeneratorConfig) types.PriceHistory {
	return PriceHistoryFromBars(config.Symbol, g.Generate(config))
}

// PriceHistoryFromBars converts bars of one symbol to a broker answer.
func PriceHistoryFromBars(symbol string, bars []types.Bar) types.PriceHistory {
	candles := make([]types.Candle, len(bars))
	for i, b := range bars {
		candles[i] = types.Candle{
			Open:       b.Open,
			Close:      b.Close,
			High:       b.High,
			Low:        b.Low,
			Volume:     b.Volume,
			DatetimeMs: b.Time.UnixMilli(),
		}
	}

	return types.PriceHistory{Symbol: symbol, Candles: candles, Error: ""}
}

// BarsFromCloses builds minute bars for symbol whose closes are closes.
func BarsFromCloses(symbol string, start time.Time, closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1,
		}
	}

	return bars
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
