package types

import "time"

// Quote is the last traded price of a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LastPrice float64   `json:"last_price"`
	Time      time.Time `json:"time"`
}

// PriceHistoryRequest describes a price history query sent to a broker.
type PriceHistoryRequest struct {
	Symbol        string    `json:"symbol" validate:"required"`
	PeriodType    string    `json:"period_type"`
	Start         time.Time `json:"start" validate:"required"`
	End           time.Time `json:"end" validate:"required,gtfield=Start"`
	FrequencyType string    `json:"frequency_type" validate:"required,oneof=minute daily weekly monthly"`
	Frequency     int       `json:"frequency" validate:"required,gt=0"`
	ExtendedHours bool      `json:"extended_hours"`
}

// Candle is a single bar as returned by a broker. DatetimeMs is epoch milliseconds.
type Candle struct {
	Open       float64 `json:"open"`
	Close      float64 `json:"close"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Volume     float64 `json:"volume"`
	DatetimeMs int64   `json:"datetime"`
}

// PriceHistory is the broker's answer to a PriceHistoryRequest. A non-empty
// Error means the broker answered but the request failed.
type PriceHistory struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
	Error   string   `json:"error,omitempty"`
}

// Bars converts the candles to bars of the history's symbol.
func (h PriceHistory) Bars() []Bar {
	bars := make([]Bar, 0, len(h.Candles))
	for _, c := range h.Candles {
		bars = append(bars, Bar{
			Symbol: h.Symbol,
			Time:   time.UnixMilli(c.DatetimeMs).UTC(),
			Open:   c.Open,
			Close:  c.Close,
			High:   c.High,
			Low:    c.Low,
			Volume: c.Volume,
		})
	}

	return bars
}

// LastBar returns the most recent candle as a bar, or false if there are no candles.
func (h PriceHistory) LastBar() (Bar, bool) {
	bars := h.Bars()
	if len(bars) == 0 {
		return Bar{}, false //nolint:exhaustruct
	}

	return bars[len(bars)-1], true
}
