package timeseries

import (
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	baseTime time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	s.baseTime = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
}

func (s *StoreTestSuite) bar(symbol string, minute int, close float64) types.Bar {
	return types.Bar{
		Symbol: symbol,
		Time:   s.baseTime.Add(time.Duration(minute) * time.Minute),
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: 1000,
	}
}

func (s *StoreTestSuite) closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}

	return out
}

func (s *StoreTestSuite) TestAppendKeepsOrder() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 2, 102), s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101))

	grouped := store.GroupedBySymbol()
	s.Equal([]float64{100, 101, 102}, s.closes(grouped["AAPL"]))
	s.Equal(3, store.Len("AAPL"))
}

func (s *StoreTestSuite) TestAppendOverwritesDuplicateTimestamp() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101), s.bar("AAPL", 2, 102))

	// last entry and middle entry
	store.Append(s.bar("AAPL", 2, 200), s.bar("AAPL", 1, 150))

	grouped := store.GroupedBySymbol()
	s.Equal([]float64{100, 150, 200}, s.closes(grouped["AAPL"]))
}

func (s *StoreTestSuite) TestAppendIsIdempotent() {
	store := NewStore(0)
	bars := []types.Bar{s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101), s.bar("MSFT", 0, 300)}

	store.Append(bars...)
	first := store.GroupedBySymbol()

	store.Append(bars...)
	s.Equal(first, store.GroupedBySymbol())
}

func (s *StoreTestSuite) TestGroupedBySymbolIsolatesSymbols() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100), s.bar("MSFT", 0, 300), s.bar("AAPL", 1, 101))

	grouped := store.GroupedBySymbol()
	s.Len(grouped, 2)
	s.Len(grouped["AAPL"], 2)
	s.Len(grouped["MSFT"], 1)
	s.Equal([]string{"AAPL", "MSFT"}, store.Symbols())
}

func (s *StoreTestSuite) TestEviction() {
	store := NewStore(3)
	for i := 0; i < 5; i++ {
		store.Append(s.bar("SPY", i, float64(100+i)))
	}

	s.Equal([]float64{102, 103, 104}, s.closes(store.GroupedBySymbol()["SPY"]))

	// out-of-order insert still respects the cap
	store.Append(s.bar("SPY", -1, 99))
	s.Equal(3, store.Len("SPY"))
}

func (s *StoreTestSuite) TestRollingWindow() {
	store := NewStore(0)
	for i := 0; i < 5; i++ {
		store.Append(s.bar("SPY", i, float64(i)))
	}

	store.Append(s.bar("QQQ", 0, 10))

	windows, err := store.RollingWindow(3)
	s.Require().NoError(err)

	spy := windows["SPY"]
	s.Require().Len(spy, 5)
	s.True(spy[0].IsNone())
	s.True(spy[1].IsNone())
	s.Equal([]float64{0, 1, 2}, s.closes(spy[2].Unwrap()))
	s.Equal([]float64{2, 3, 4}, s.closes(spy[4].Unwrap()))

	s.Require().Len(windows["QQQ"], 1)
	s.True(windows["QQQ"][0].IsNone())
}

func (s *StoreTestSuite) TestRollingWindowInvalidSize() {
	store := NewStore(0)
	_, err := store.RollingWindow(0)
	s.Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *StoreTestSuite) TestColumnsExist() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100))
	s.Require().NoError(store.SetColumn("AAPL", "rsi", []optional.Option[float64]{optional.Some(50.0)}))

	s.NoError(store.ColumnsExist("rsi"))
	s.NoError(store.ColumnsExist())

	err := store.ColumnsExist("rsi", "macd", "ema_20", "macd")
	s.Require().Error(err)

	var missing *errors.MissingColumnsError
	s.Require().True(errors.As(err, &missing))
	s.Equal([]string{"ema_20", "macd"}, missing.Missing)
}

func (s *StoreTestSuite) TestDeclareColumnsOnEmptyStore() {
	store := NewStore(0)
	store.DeclareColumns("sma_50")
	s.NoError(store.ColumnsExist("sma_50"))
}

func (s *StoreTestSuite) TestSetColumnLengthMismatch() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101))

	err := store.SetColumn("AAPL", "rsi", []optional.Option[float64]{optional.Some(1.0)})
	s.Error(err)
}

func (s *StoreTestSuite) TestNewBarHasUndefinedValues() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101))
	s.Require().NoError(store.SetColumn("AAPL", "close", []optional.Option[float64]{
		optional.Some(100.0), optional.Some(101.0),
	}))

	store.Append(s.bar("AAPL", 2, 102))
	store.Append(s.bar("AAPL", 0, 99))

	values, err := store.Column("AAPL", "close")
	s.Require().NoError(err)
	s.True(values[0].IsNone())
	s.Equal(101.0, values[1].Unwrap())
	s.True(values[2].IsNone())

	// the column still exists
	s.NoError(store.ColumnsExist("close"))

	_, err = store.Column("AAPL", "rsi")
	s.Error(err)
}

func (s *StoreTestSuite) TestLastRows() {
	store := NewStore(0)
	store.Append(s.bar("AAPL", 0, 100), s.bar("AAPL", 1, 101), s.bar("MSFT", 3, 300))
	s.Require().NoError(store.SetColumn("AAPL", "rsi", []optional.Option[float64]{
		optional.None[float64](), optional.Some(42.0),
	}))

	rows := store.LastRows()
	s.Len(rows, 2)

	aapl := rows["AAPL"]
	s.Equal(101.0, aapl.Bar.Close)
	v, ok := aapl.Value("rsi")
	s.True(ok)
	s.Equal(42.0, v)

	_, ok = rows["MSFT"].Value("rsi")
	s.False(ok)

	last, ok := store.LastTimestamp()
	s.True(ok)
	s.True(s.baseTime.Add(3 * time.Minute).Equal(last))

	_, ok = NewStore(0).LastTimestamp()
	s.False(ok)
}

func (s *StoreTestSuite) TestConcurrentAppend() {
	store := NewStore(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(offset int) {
			defer wg.Done()

			for j := 0; j < 20; j++ {
				store.Append(s.bar("SPY", offset*20+j, float64(offset*20+j)))
			}
		}(i)
	}

	wg.Wait()

	bars := store.GroupedBySymbol()["SPY"]
	s.Len(bars, 200)

	for i := 1; i < len(bars); i++ {
		s.True(bars[i].Time.After(bars[i-1].Time))
	}
}
