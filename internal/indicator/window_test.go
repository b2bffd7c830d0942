package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type WindowTestSuite struct {
	suite.Suite
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowTestSuite))
}

func barsFromCloses(symbol string, closes ...float64) []types.Bar {
	base := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		}
	}

	return bars
}

func (suite *WindowTestSuite) TestSMA() {
	closes := make([]float64, 0, 50)
	for c := 10; c < 60; c++ {
		closes = append(closes, float64(c))
	}

	v, err := SMA(barsFromCloses("AAA", closes...))
	suite.NoError(err)
	suite.InDelta(34.5, v, 1e-9)
}

func (suite *WindowTestSuite) TestEMA() {
	fn, window, err := Builtin(KindEMA, 2)
	suite.Require().NoError(err)
	suite.Equal(4, window)

	v, err := fn(barsFromCloses("AAA", 1, 2, 3, 4))
	suite.NoError(err)
	suite.InDelta(3.5, v, 1e-9)

	_, err = fn(barsFromCloses("AAA", 1))
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *WindowTestSuite) TestRSI() {
	v, err := RSI(barsFromCloses("AAA", 1, 2, 3, 2))
	suite.NoError(err)
	suite.InDelta(66.6667, v, 1e-3)

	v, err = RSI(barsFromCloses("AAA", 1, 2, 3, 4))
	suite.NoError(err)
	suite.Equal(100.0, v)

	v, err = RSI(barsFromCloses("AAA", 4, 3, 2, 1))
	suite.NoError(err)
	suite.InDelta(0.0, v, 1e-9)

	_, err = RSI(barsFromCloses("AAA", 1))
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *WindowTestSuite) TestATR() {
	bars := []types.Bar{
		{Close: 10, High: 10, Low: 10},
		{Close: 11, High: 12, Low: 9},
		{Close: 14, High: 15, Low: 13},
	}

	// true ranges: max(3, 2, 1) = 3 and max(2, 4, 2) = 4
	v, err := ATR(bars)
	suite.NoError(err)
	suite.InDelta(3.5, v, 1e-9)
}

func (suite *WindowTestSuite) TestStdDev() {
	v, err := StdDev(barsFromCloses("AAA", 2, 4, 4, 4, 5, 5, 7, 9))
	suite.NoError(err)
	suite.InDelta(2.0, v, 1e-9)
}

func (suite *WindowTestSuite) TestClose() {
	v, err := Close(barsFromCloses("AAA", 1, 2, 3))
	suite.NoError(err)
	suite.Equal(3.0, v)

	_, err = Close(nil)
	suite.Error(err)
}

func (suite *WindowTestSuite) TestBuiltinCatalog() {
	tests := []struct {
		kind   Kind
		period int
		window int
	}{
		{KindClose, 0, 1},
		{KindSMA, 50, 50},
		{KindRSI, 14, 15},
		{KindATR, 14, 15},
		{KindStdDev, 20, 20},
		{"EMA", 10, 20},
	}

	for _, tt := range tests {
		fn, window, err := Builtin(tt.kind, tt.period)
		suite.NoError(err, tt.kind)
		suite.NotNil(fn)
		suite.Equal(tt.window, window, tt.kind)
	}

	_, _, err := Builtin(KindSMA, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	_, _, err = Builtin("vwap", 10)
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
}

func (suite *WindowTestSuite) TestColumnName() {
	suite.Equal("sma_50", ColumnName(KindSMA, 50))
	suite.Equal("close", ColumnName(KindClose, 0))
}
