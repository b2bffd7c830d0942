package mocks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarGeneratorTestSuite struct {
	suite.Suite
}

func TestBarGeneratorSuite(t *testing.T) {
	suite.Run(t, new(BarGeneratorTestSuite))
}

func (suite *BarGeneratorTestSuite) TestGenerate() {
	config := DefaultConfig()
	config.Count = 100

	bars := NewBarGenerator(42).Generate(config)
	suite.Len(bars, 100)

	for i, b := range bars {
		suite.Equal(config.Symbol, b.Symbol)
		suite.Positive(b.Low)
		suite.GreaterOrEqual(b.High, b.Low)

		if i > 0 {
			suite.Equal(config.Interval, b.Time.Sub(bars[i-1].Time))
		}
	}
}

func (suite *BarGeneratorTestSuite) TestReproducible() {
	config := DefaultConfig()
	config.Count = 20

	suite.Equal(NewBarGenerator(7).Generate(config), NewBarGenerator(7).Generate(config))
	suite.NotEqual(NewBarGenerator(7).Generate(config), NewBarGenerator(8).Generate(config))
}

func (suite *BarGeneratorTestSuite) TestPriceHistory() {
	config := DefaultConfig()
	config.Symbol = "SPY"
	config.Count = 5

	history := NewBarGenerator(1).PriceHistory(config)
	suite.Equal("SPY", history.Symbol)
	suite.Len(history.Candles, 5)

	last, ok := history.LastBar()
	suite.True(ok)
	suite.Equal(config.StartTime.Add(4*time.Minute), last.Time)
}

func (suite *BarGeneratorTestSuite) TestBarsFromCloses() {
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	bars := BarsFromCloses("AAA", start, 1, 2, 3)

	suite.Len(bars, 3)
	suite.InDelta(3.0, bars[2].Close, 1e-9)
	suite.Equal(start.Add(2*time.Minute), bars[2].Time)
}
