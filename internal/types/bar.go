package types

import "time"

// Bar is one OHLCV price bar. A bar is unique by (Symbol, Time).
type Bar struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Row is the latest bar of a symbol together with its indicator values.
// Undefined indicator values are absent from Values.
type Row struct {
	Bar    Bar
	Values map[string]float64
}

// Value returns the indicator value named name and whether it is defined.
func (r Row) Value(name string) (float64, bool) {
	v, ok := r.Values[name]

	return v, ok
}
