package types

import (
	"sort"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// Operator is a closed set of numeric comparisons used by signal rules.
type Operator string

const (
	OperatorGE Operator = "ge"
	OperatorLE Operator = "le"
	OperatorGT Operator = "gt"
	OperatorLT Operator = "lt"
	OperatorEQ Operator = "eq"
)

var operatorSymbols = map[string]Operator{
	">=": OperatorGE,
	"<=": OperatorLE,
	">":  OperatorGT,
	"<":  OperatorLT,
	"==": OperatorEQ,
}

// ParseOperator accepts ge, le, gt, lt, eq or their symbolic forms.
func ParseOperator(s string) (Operator, error) {
	if op, ok := operatorSymbols[strings.TrimSpace(s)]; ok {
		return op, nil
	}

	switch op := Operator(strings.ToLower(strings.TrimSpace(s))); op {
	case OperatorGE, OperatorLE, OperatorGT, OperatorLT, OperatorEQ:
		return op, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOperator, "unknown operator %q", s)
	}
}

// Apply evaluates "a op b".
func (o Operator) Apply(a, b float64) bool {
	switch o {
	case OperatorGE:
		return a >= b
	case OperatorLE:
		return a <= b
	case OperatorGT:
		return a > b
	case OperatorLT:
		return a < b
	case OperatorEQ:
		return a == b
	default:
		return false
	}
}

// SignalSide selects the buy or the sell half of a rule.
type SignalSide string

const (
	SignalSideBuy  SignalSide = "buy"
	SignalSideSell SignalSide = "sell"
)

// SignalRule is either a ThresholdRule or a ComparisonRule.
type SignalRule interface {
	// Key identifies the rule; setting a rule with an existing key replaces it.
	Key() string
	// Indicators lists the indicator columns the rule reads.
	Indicators() []string
	// Verdict evaluates the rule for one side on a symbol's latest row.
	// participates is false when the rule has no operator for that side.
	// An undefined indicator value yields a false verdict.
	Verdict(row Row, side SignalSide) (verdict bool, participates bool)
}

// ThresholdRule compares one indicator against fixed thresholds.
type ThresholdRule struct {
	Indicator     string
	BuyThreshold  float64
	SellThreshold float64
	BuyOp         optional.Option[Operator]
	SellOp        optional.Option[Operator]
	BuyMax        optional.Option[float64]
	SellMax       optional.Option[float64]
	BuyMaxOp      optional.Option[Operator]
	SellMaxOp     optional.Option[Operator]
}

func (r ThresholdRule) Key() string {
	return r.Indicator
}

func (r ThresholdRule) Indicators() []string {
	return []string{r.Indicator}
}

// Validate checks that max thresholds and max operators come in pairs.
func (r ThresholdRule) Validate() error {
	if r.Indicator == "" {
		return errors.New(errors.ErrCodeInvalidThreshold, "threshold rule requires an indicator")
	}

	if r.BuyMax.IsSome() != r.BuyMaxOp.IsSome() {
		return errors.Newf(errors.ErrCodeInvalidThreshold, "rule %s: buy_max and buy_max_op must be set together", r.Indicator)
	}

	if r.SellMax.IsSome() != r.SellMaxOp.IsSome() {
		return errors.Newf(errors.ErrCodeInvalidThreshold, "rule %s: sell_max and sell_max_op must be set together", r.Indicator)
	}

	return nil
}

func (r ThresholdRule) Verdict(row Row, side SignalSide) (bool, bool) {
	op, threshold, maxOp, maxValue := r.BuyOp, r.BuyThreshold, r.BuyMaxOp, r.BuyMax
	if side == SignalSideSell {
		op, threshold, maxOp, maxValue = r.SellOp, r.SellThreshold, r.SellMaxOp, r.SellMax
	}

	if op.IsNone() {
		return false, false
	}

	v, ok := row.Value(r.Indicator)
	if !ok {
		return false, true
	}

	if !op.Unwrap().Apply(v, threshold) {
		return false, true
	}

	if maxOp.IsSome() && maxValue.IsSome() {
		return maxOp.Unwrap().Apply(v, maxValue.Unwrap()), true
	}

	return true, true
}

// ComparisonRule compares two indicators with each other.
type ComparisonRule struct {
	IndicatorA string
	IndicatorB string
	BuyOp      optional.Option[Operator]
	SellOp     optional.Option[Operator]
}

func (r ComparisonRule) Key() string {
	return r.IndicatorA + "_comp_" + r.IndicatorB
}

func (r ComparisonRule) Indicators() []string {
	return []string{r.IndicatorA, r.IndicatorB}
}

func (r ComparisonRule) Verdict(row Row, side SignalSide) (bool, bool) {
	op := r.BuyOp
	if side == SignalSideSell {
		op = r.SellOp
	}

	if op.IsNone() {
		return false, false
	}

	a, okA := row.Value(r.IndicatorA)
	b, okB := row.Value(r.IndicatorB)

	if !okA || !okB {
		return false, true
	}

	return op.Unwrap().Apply(a, b), true
}

// Combinator folds the verdicts of the rules that participate in one side.
// It is never called with an empty slice.
type Combinator func(verdicts []bool) bool

// CombineAll is true when every verdict is true.
func CombineAll(verdicts []bool) bool {
	for _, v := range verdicts {
		if !v {
			return false
		}
	}

	return true
}

// CombineAny is true when at least one verdict is true.
func CombineAny(verdicts []bool) bool {
	for _, v := range verdicts {
		if v {
			return true
		}
	}

	return false
}

// ParseCombinator maps "all" (or "and") and "any" (or "or") to a Combinator.
func ParseCombinator(s string) (Combinator, error) {
	switch strings.ToLower(s) {
	case "", "all", "and":
		return CombineAll, nil
	case "any", "or":
		return CombineAny, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown combinator %q", s)
	}
}

// SymbolSet is an unordered set of ticker symbols.
type SymbolSet map[string]struct{}

// NewSymbolSet builds a set from symbols.
func NewSymbolSet(symbols ...string) SymbolSet {
	s := make(SymbolSet, len(symbols))
	for _, sym := range symbols {
		s[sym] = struct{}{}
	}

	return s
}

func (s SymbolSet) Add(symbol string) {
	s[symbol] = struct{}{}
}

func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[symbol]

	return ok
}

// Sorted returns the members in ascending order.
func (s SymbolSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for sym := range s {
		out = append(out, sym)
	}

	sort.Strings(out)

	return out
}

// SignalResult holds the symbols whose latest bar satisfies the buy or the sell conditions.
type SignalResult struct {
	Buys  SymbolSet
	Sells SymbolSet
}

// NewSignalResult returns a result with empty sets.
func NewSignalResult() SignalResult {
	return SignalResult{
		Buys:  NewSymbolSet(),
		Sells: NewSymbolSet(),
	}
}
