package portfolio

import (
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/shopspring/decimal"
)

// Ledger records the positions of one account and whether each is currently owned.
// Ownership is only changed explicitly, never inferred from quantity.
type Ledger struct {
	accountNumber string
	positions     map[string]types.Position
	validate      *validator.Validate
	mu            sync.RWMutex
}

// NewLedger creates an empty ledger for accountNumber.
func NewLedger(accountNumber string) *Ledger {
	return &Ledger{
		accountNumber: accountNumber,
		positions:     make(map[string]types.Position),
		validate:      validator.New(),
		mu:            sync.RWMutex{},
	}
}

// AccountNumber returns the account the ledger belongs to.
func (l *Ledger) AccountNumber() string {
	return l.accountNumber
}

// NewPosition adds or replaces the position for p.Symbol.
func (l *Ledger) NewPosition(p types.Position) error {
	if err := l.validate.Struct(p); err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid position %q", p.Symbol)
	}

	if p.AssetType == "" {
		p.AssetType = types.AssetTypeEquity
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions[p.Symbol] = p

	return nil
}

// NewPositionCollection adds every position. Nothing is added if any position is invalid.
func (l *Ledger) NewPositionCollection(positions []types.Position) error {
	for _, p := range positions {
		if err := l.validate.Struct(p); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid position %q", p.Symbol)
		}
	}

	for _, p := range positions {
		if err := l.NewPosition(p); err != nil {
			return err
		}
	}

	return nil
}

// DeletePosition removes symbol from the ledger.
func (l *Ledger) DeletePosition(symbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[symbol]; !ok {
		return errors.Newf(errors.ErrCodePositionNotFound, "%s does not exist", symbol)
	}

	delete(l.positions, symbol)

	return nil
}

// InPortfolio reports whether symbol has a ledger entry, owned or not.
func (l *Ledger) InPortfolio(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.positions[symbol]

	return ok
}

// SetOwnership updates the ownership flag. It returns false when symbol is not in the ledger.
func (l *Ledger) SetOwnership(symbol string, owned bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[symbol]
	if !ok {
		return false
	}

	p.Owned = owned
	l.positions[symbol] = p

	return true
}

// IsOwned reports whether symbol is in the ledger and marked owned.
func (l *Ledger) IsOwned(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.positions[symbol].Owned
}

// Position returns the entry for symbol.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.positions[symbol]

	return p, ok
}

// Positions returns every entry ordered by symbol.
func (l *Ledger) Positions() []types.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})

	return out
}

// Symbols returns the ledger symbols in ascending order.
func (l *Ledger) Symbols() []string {
	positions := l.Positions()
	symbols := make([]string, len(positions))

	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	return symbols
}

// IsProfitable reports whether currentPrice is at or above the purchase price.
func (l *Ledger) IsProfitable(symbol string, currentPrice float64) (bool, error) {
	p, ok := l.Position(symbol)
	if !ok {
		return false, errors.Newf(errors.ErrCodePositionNotFound, "%s does not exist", symbol)
	}

	return decimal.NewFromFloat(p.Price).LessThanOrEqual(decimal.NewFromFloat(currentPrice)), nil
}
