package timeseries

import (
	"sort"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// row is one bar plus the indicator values computed for it. A missing key
// means the value is undefined.
type row struct {
	bar    types.Bar
	values map[string]float64
}

// Store keeps bars per symbol ordered by time (oldest first) together with
// named indicator columns aligned to those bars.
// A bar inserted or overwritten after the last refresh has no indicator values
// until the columns are recomputed.
type Store struct {
	// maxBars caps the number of bars kept per symbol. Zero keeps everything.
	maxBars int
	data    map[string][]row
	columns map[string]struct{}
	mu      sync.RWMutex
}

// NewStore creates an empty store. maxBars <= 0 disables eviction.
func NewStore(maxBars int) *Store {
	if maxBars < 0 {
		maxBars = 0
	}

	return &Store{
		maxBars: maxBars,
		data:    make(map[string][]row),
		columns: make(map[string]struct{}),
		mu:      sync.RWMutex{},
	}
}

// Append inserts bars, keeping each symbol in ascending time order.
// A bar with an existing (symbol, time) replaces the stored one.
func (s *Store) Append(bars ...types.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bar := range bars {
		s.insert(bar)
	}
}

func (s *Store) insert(bar types.Bar) {
	symbolData := s.data[bar.Symbol]
	entry := row{bar: bar, values: nil}

	// Fast path: chronological append
	if len(symbolData) > 0 {
		lastTime := symbolData[len(symbolData)-1].bar.Time
		if bar.Time.After(lastTime) {
			s.data[bar.Symbol] = s.evict(append(symbolData, entry))

			return
		}

		if bar.Time.Equal(lastTime) {
			symbolData[len(symbolData)-1] = entry

			return
		}
	} else {
		s.data[bar.Symbol] = append(symbolData, entry)

		return
	}

	insertIdx := sort.Search(len(symbolData), func(i int) bool {
		return !symbolData[i].bar.Time.Before(bar.Time)
	})

	if insertIdx < len(symbolData) && symbolData[insertIdx].bar.Time.Equal(bar.Time) {
		symbolData[insertIdx] = entry

		return
	}

	symbolData = append(symbolData, row{}) //nolint:exhaustruct // placeholder for slice expansion
	copy(symbolData[insertIdx+1:], symbolData[insertIdx:])
	symbolData[insertIdx] = entry

	s.data[bar.Symbol] = s.evict(symbolData)
}

func (s *Store) evict(symbolData []row) []row {
	if s.maxBars > 0 && len(symbolData) > s.maxBars {
		return symbolData[len(symbolData)-s.maxBars:]
	}

	return symbolData
}

// Symbols returns the stored symbols in ascending order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for symbol := range s.data {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Len returns the number of bars stored for symbol.
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[symbol])
}

// GroupedBySymbol returns a chronological copy of every symbol's bars.
func (s *Store) GroupedBySymbol() map[string][]types.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]types.Bar, len(s.data))
	for symbol, rows := range s.data {
		bars := make([]types.Bar, len(rows))
		for i, r := range rows {
			bars[i] = r.bar
		}

		result[symbol] = bars
	}

	return result
}

// RollingWindow returns, for each symbol and each bar position, the trailing
// window of size bars ending at that position. Positions with fewer than size
// bars of history are None.
func (s *Store) RollingWindow(size int) (map[string][]optional.Option[[]types.Bar], error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window size must be positive, got %d", size)
	}

	grouped := s.GroupedBySymbol()
	result := make(map[string][]optional.Option[[]types.Bar], len(grouped))

	for symbol, bars := range grouped {
		windows := make([]optional.Option[[]types.Bar], len(bars))
		for i := range bars {
			if i+1 < size {
				windows[i] = optional.None[[]types.Bar]()

				continue
			}

			window := make([]types.Bar, size)
			copy(window, bars[i+1-size:i+1])
			windows[i] = optional.Some(window)
		}

		result[symbol] = windows
	}

	return result, nil
}

// DeclareColumns registers column names without assigning values, so that a
// column computed over an empty store still exists.
func (s *Store) DeclareColumns(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		s.columns[name] = struct{}{}
	}
}

// SetColumn replaces the values of column name for symbol. values must be
// aligned one-to-one with the symbol's bars; None marks an undefined value.
func (s *Store) SetColumn(symbol, name string, values []optional.Option[float64]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.data[symbol]
	if len(values) != len(rows) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"column %s for %s has %d values, expected %d", name, symbol, len(values), len(rows))
	}

	s.columns[name] = struct{}{}

	for i := range rows {
		if rows[i].values == nil {
			rows[i].values = make(map[string]float64)
		}

		if values[i].IsSome() {
			rows[i].values[name] = values[i].Unwrap()
		} else {
			delete(rows[i].values, name)
		}
	}

	return nil
}

// Column returns the values of column name for symbol, aligned with its bars.
func (s *Store) Column(symbol, name string) ([]optional.Option[float64], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.columns[name]; !ok {
		return nil, &errors.MissingColumnsError{Missing: []string{name}}
	}

	rows := s.data[symbol]
	values := make([]optional.Option[float64], len(rows))

	for i, r := range rows {
		if v, ok := r.values[name]; ok {
			values[i] = optional.Some(v)
		} else {
			values[i] = optional.None[float64]()
		}
	}

	return values, nil
}

// ColumnsExist returns nil when every name is a known column, otherwise a
// *errors.MissingColumnsError listing exactly the absent names.
func (s *Store) ColumnsExist(names ...string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	missing := []string{}

	for _, name := range names {
		if _, ok := s.columns[name]; ok {
			continue
		}

		if _, dup := seen[name]; dup {
			continue
		}

		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)

	return &errors.MissingColumnsError{Missing: missing}
}

// LastRows returns the most recent bar of each symbol with its defined indicator values.
func (s *Store) LastRows() map[string]types.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]types.Row, len(s.data))

	for symbol, rows := range s.data {
		if len(rows) == 0 {
			continue
		}

		last := rows[len(rows)-1]
		values := make(map[string]float64, len(last.values))

		for k, v := range last.values {
			values[k] = v
		}

		result[symbol] = types.Row{Bar: last.bar, Values: values}
	}

	return result
}

// LastTimestamp returns the latest bar time across all symbols.
func (s *Store) LastTimestamp() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time

	found := false

	for _, rows := range s.data {
		if len(rows) == 0 {
			continue
		}

		t := rows[len(rows)-1].bar.Time
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}

	return latest, found
}
