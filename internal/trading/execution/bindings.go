package execution

import (
	"sort"

	"github.com/rxtech-lab/argo-robot/internal/trade"
)

// TradeBinding holds the trades fired for one symbol. HasExecuted is set once
// either trade was submitted in the current cycle.
type TradeBinding struct {
	Buy         *trade.Trade
	Sell        *trade.Trade
	HasExecuted bool
}

// TradeFor returns the trade for side, or nil when the binding has none.
func (b *TradeBinding) TradeFor(buy bool) *trade.Trade {
	if buy {
		return b.Buy
	}

	return b.Sell
}

// Bindings maps a symbol to its trades.
type Bindings map[string]*TradeBinding

// Bind sets the trades of symbol and clears its executed flag.
func (b Bindings) Bind(symbol string, buy, sell *trade.Trade) {
	b[symbol] = &TradeBinding{Buy: buy, Sell: sell, HasExecuted: false}
}

// ResetExecuted clears every executed flag. Called at each cycle boundary.
func (b Bindings) ResetExecuted() {
	for _, binding := range b {
		binding.HasExecuted = false
	}
}

// Symbols returns the bound symbols in ascending order.
func (b Bindings) Symbols() []string {
	symbols := make([]string, 0, len(b))
	for symbol := range b {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}
