// Package trade builds broker-shaped orders for a single trade intent and
// tracks the order through construction, bracketing and submission.
package trade

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/shopspring/decimal"
)

// State is the lifecycle position of a trade's order.
type State string

const (
	// StateNew means the order has no instrument yet.
	StateNew State = "new"
	// StateConfigured means the order is ready for submission.
	StateConfigured State = "configured"
	// StateBracketed means take-profit/stop-loss children were added.
	StateBracketed State = "bracketed"
	// StateSubmitted means a response is attached and the order can no longer be modified.
	StateSubmitted State = "submitted"
)

const (
	trailingStopLinkBasis = "LAST"
	trailingStopLinkType  = "VALUE"
	trailingStopType      = "STANDARD"
	pricePrecision        = 2
)

var clientOrderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rxtech-lab/argo-robot/trade"))

// Trade owns one order from construction until its response is attached.
type Trade struct {
	id             string
	order          types.Order
	state          State
	hasInstrument  bool
	bracketApplied bool
	response       optional.Option[types.OrderResponse]
	mu             sync.RWMutex
}

// NewTrade creates a single-leg order. orderType accepts the canonical names
// and the aliases mkt, lmt, stop, stop_lmt and trailing_stop.
//
//   - STOP sets the stop price to price.
//   - LIMIT sets the limit price to price.
//   - STOP_LIMIT sets the stop price to price and the limit price to stopLimitPrice.
//   - TRAILING_STOP sets the link basis, link type and stop type defaults and
//     uses price as the trailing offset.
//   - MARKET sets no price field.
func NewTrade(id string, orderType string, enterOrExit types.EnterOrExit, side types.Side, price, stopLimitPrice float64) (*Trade, error) {
	if id == "" {
		return nil, errors.New(errors.ErrCodeInvalidOrder, "trade id is required")
	}

	kind, err := types.ParseOrderType(orderType)
	if err != nil {
		return nil, err
	}

	instruction, err := types.InstructionFor(enterOrExit, side)
	if err != nil {
		return nil, err
	}

	order := types.Order{
		OrderStrategyType:  types.OrderStrategySingle,
		OrderType:          kind,
		Session:            types.SessionNormal,
		Duration:           types.DurationDay,
		CancelTime:         "",
		Price:              optional.None[float64](),
		StopPrice:          optional.None[float64](),
		StopPriceLinkBasis: "",
		StopPriceLinkType:  "",
		StopPriceOffset:    optional.None[float64](),
		StopType:           "",
		OrderLegCollection: []types.OrderLeg{{
			Instruction: instruction,
			Quantity:    0,
			Instrument:  types.Instrument{Symbol: "", AssetType: ""},
		}},
		ChildOrderStrategies: nil,
	}

	switch kind {
	case types.OrderTypeMarket:
	case types.OrderTypeLimit:
		if price <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: limit order requires a positive price", id)
		}

		order.Price = optional.Some(price)
	case types.OrderTypeStop:
		if price <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: stop order requires a positive price", id)
		}

		order.StopPrice = optional.Some(price)
	case types.OrderTypeStopLimit:
		if price <= 0 || stopLimitPrice <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: stop limit order requires positive stop and limit prices", id)
		}

		order.StopPrice = optional.Some(price)
		order.Price = optional.Some(stopLimitPrice)
	case types.OrderTypeTrailingStop:
		if price < 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: trailing offset must not be negative", id)
		}

		order.StopPriceLinkBasis = trailingStopLinkBasis
		order.StopPriceLinkType = trailingStopLinkType
		order.StopPriceOffset = optional.Some(price)
		order.StopType = trailingStopType
	}

	return &Trade{
		id:             id,
		order:          order,
		state:          StateNew,
		hasInstrument:  false,
		bracketApplied: false,
		response:       optional.None[types.OrderResponse](),
		mu:             sync.RWMutex{},
	}, nil
}

// ID returns the trade identifier.
func (t *Trade) ID() string {
	return t.id
}

// ClientOrderID is a UUID derived from the trade id. The same trade id always
// yields the same value.
func (t *Trade) ClientOrderID() string {
	return uuid.NewSHA1(clientOrderNamespace, []byte(t.id)).String()
}

// State returns the lifecycle state.
func (t *Trade) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.state
}

// Ready reports whether the order has an instrument and can be submitted.
// A submitted trade stays ready so the same intent can fire on a later cycle.
func (t *Trade) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.hasInstrument
}

// Symbol returns the symbol of the first leg.
func (t *Trade) Symbol() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.order.Symbol()
}

// Order returns a copy of the order.
func (t *Trade) Order() types.Order {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.order.Clone()
}

// SetInstrument binds the first leg to ticker and quantity. Bracket children
// follow the parent's instrument and quantity.
func (t *Trade) SetInstrument(ticker string, quantity float64, assetType types.AssetType) error {
	if ticker == "" {
		return errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: ticker is required", t.id)
	}

	if quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: quantity must be positive, got %v", t.id, quantity)
	}

	if assetType == "" {
		assetType = types.AssetTypeEquity
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(); err != nil {
		return err
	}

	leg := &t.order.OrderLegCollection[0]
	leg.Quantity = quantity
	leg.Instrument = types.Instrument{Symbol: ticker, AssetType: assetType}

	syncChildren(t.order.ChildOrderStrategies, *leg)

	t.hasInstrument = true
	if t.state == StateNew {
		t.state = StateConfigured
	}

	return nil
}

// GoodTillCancel switches the order to GOOD_TILL_CANCEL with an ISO-8601 cancel time.
func (t *Trade) GoodTillCancel(cancelTime time.Time) error {
	if cancelTime.IsZero() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: cancel time is required", t.id)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(); err != nil {
		return err
	}

	t.order.Duration = types.DurationGoodTillCancel
	t.order.CancelTime = cancelTime.UTC().Format(time.RFC3339)

	return nil
}

// ModifySide overrides the first leg's instruction. Without an instruction
// the leg flips to the opposite side. Bracket children are flipped with it.
func (t *Trade) ModifySide(instruction optional.Option[types.Instruction]) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkMutable(); err != nil {
		return err
	}

	leg := &t.order.OrderLegCollection[0]

	next := leg.Instruction.Opposite()
	if instruction.IsSome() {
		next = instruction.Unwrap()
	}

	switch next {
	case types.InstructionBuy, types.InstructionSell, types.InstructionSellShort, types.InstructionBuyToCover:
	default:
		return errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: unknown instruction %q", t.id, next)
	}

	leg.Instruction = next
	syncChildren(t.order.ChildOrderStrategies, *leg)

	return nil
}

// AddBracket converts the order into a TRIGGER order whose child takes profit
// at profitSize away from the reference price and, unless withoutStopLoss is
// set, stops out at the same distance on the other side. The two exits are
// wrapped in an OCO order. profitSize is a percentage of the reference price
// when isPercentage is set. Only the first call has an effect.
func (t *Trade) AddBracket(profitSize float64, isPercentage bool, withoutStopLoss bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bracketApplied {
		return nil
	}

	if err := t.checkMutable(); err != nil {
		return err
	}

	if profitSize <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "trade %s: profit size must be positive, got %v", t.id, profitSize)
	}

	refPrice, ok := t.order.ReferencePrice()
	if !ok || refPrice <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "trade %s: bracket requires an order with a limit or stop price", t.id)
	}

	ref := decimal.NewFromFloat(refPrice)

	delta := decimal.NewFromFloat(profitSize)
	if isPercentage {
		delta = ref.Mul(delta).Div(decimal.NewFromInt(100))
	}

	parent := t.order.OrderLegCollection[0]

	takeProfit, stopLoss := ref.Add(delta), ref.Sub(delta)
	if !parent.Instruction.IsBuy() {
		takeProfit, stopLoss = stopLoss, takeProfit
	}

	if takeProfit.Sign() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidTakeProfit, "trade %s: take profit price %s is not positive", t.id, takeProfit.String())
	}

	exit := types.OrderLeg{
		Instruction: parent.Instruction.Opposite(),
		Quantity:    parent.Quantity,
		Instrument:  parent.Instrument,
	}

	tpOrder := childOrder(types.OrderTypeLimit, exit)
	tpOrder.Price = optional.Some(roundPrice(takeProfit))

	child := tpOrder

	if !withoutStopLoss {
		if stopLoss.Sign() <= 0 {
			return errors.Newf(errors.ErrCodeInvalidStopLoss, "trade %s: stop loss price %s is not positive", t.id, stopLoss.String())
		}

		slOrder := childOrder(types.OrderTypeStop, exit)
		slOrder.StopPrice = optional.Some(roundPrice(stopLoss))

		child = types.Order{
			OrderStrategyType:    types.OrderStrategyOCO,
			ChildOrderStrategies: []types.Order{tpOrder, slOrder},
		}
	}

	t.order.OrderStrategyType = types.OrderStrategyTrigger
	t.order.ChildOrderStrategies = []types.Order{child}
	t.bracketApplied = true
	t.state = StateBracketed

	return nil
}

// BracketApplied reports whether AddBracket has taken effect.
func (t *Trade) BracketApplied() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.bracketApplied
}

// AttachResponse records the submission result and freezes the order.
func (t *Trade) AttachResponse(resp types.OrderResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.response = optional.Some(resp)
	t.state = StateSubmitted
}

// Response returns the last attached response.
func (t *Trade) Response() optional.Option[types.OrderResponse] {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.response
}

func (t *Trade) checkMutable() error {
	if t.state == StateSubmitted {
		return errors.Newf(errors.ErrCodeInvalidOrder, "trade %s: order already submitted", t.id)
	}

	return nil
}

func childOrder(orderType types.OrderType, leg types.OrderLeg) types.Order {
	return types.Order{
		OrderStrategyType:  types.OrderStrategySingle,
		OrderType:          orderType,
		Session:            types.SessionNormal,
		Duration:           types.DurationGoodTillCancel,
		Price:              optional.None[float64](),
		StopPrice:          optional.None[float64](),
		StopPriceOffset:    optional.None[float64](),
		OrderLegCollection: []types.OrderLeg{leg},
	}
}

// syncChildren points every leg of every child order at the parent's
// instrument and quantity, on the exit side of the parent.
func syncChildren(children []types.Order, parent types.OrderLeg) {
	for i := range children {
		for j := range children[i].OrderLegCollection {
			leg := &children[i].OrderLegCollection[j]
			leg.Instruction = parent.Instruction.Opposite()
			leg.Quantity = parent.Quantity
			leg.Instrument = parent.Instrument
		}

		syncChildren(children[i].ChildOrderStrategies, parent)
	}
}

func roundPrice(d decimal.Decimal) float64 {
	f, _ := d.Round(pricePrecision).Float64()

	return f
}
