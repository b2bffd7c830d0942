package types

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

type OrderType string

type OrderStrategyType string

type Instruction string

type EnterOrExit string

type Side string

type Session string

type Duration string

type AssetType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStop         OrderType = "STOP"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

const (
	OrderStrategySingle  OrderStrategyType = "SINGLE"
	OrderStrategyTrigger OrderStrategyType = "TRIGGER"
	OrderStrategyOCO     OrderStrategyType = "OCO"
)

const (
	InstructionBuy        Instruction = "BUY"
	InstructionSellShort  Instruction = "SELL_SHORT"
	InstructionSell       Instruction = "SELL"
	InstructionBuyToCover Instruction = "BUY_TO_COVER"
)

const (
	Enter EnterOrExit = "enter"
	Exit  EnterOrExit = "exit"
)

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

const (
	SessionNormal   Session = "NORMAL"
	SessionAM       Session = "AM"
	SessionPM       Session = "PM"
	SessionSeamless Session = "SEAMLESS"
)

const (
	DurationDay            Duration = "DAY"
	DurationGoodTillCancel Duration = "GOOD_TILL_CANCEL"
)

const (
	AssetTypeEquity AssetType = "EQUITY"
	AssetTypeCrypto AssetType = "CRYPTO"
)

var orderTypeAliases = map[string]OrderType{
	"mkt":           OrderTypeMarket,
	"lmt":           OrderTypeLimit,
	"stop":          OrderTypeStop,
	"stop_lmt":      OrderTypeStopLimit,
	"trailing_stop": OrderTypeTrailingStop,
}

// ParseOrderType accepts the canonical order type names and the short aliases
// mkt, lmt, stop, stop_lmt and trailing_stop.
func ParseOrderType(s string) (OrderType, error) {
	if t, ok := orderTypeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}

	switch t := OrderType(strings.ToUpper(s)); t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit, OrderTypeTrailingStop:
		return t, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "unknown order type %q", s)
	}
}

// ParseEnterOrExit parses "enter" or "exit".
func ParseEnterOrExit(s string) (EnterOrExit, error) {
	switch v := EnterOrExit(strings.ToLower(s)); v {
	case Enter, Exit:
		return v, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "enter_or_exit must be enter or exit, got %q", s)
	}
}

// ParseSide parses "long" or "short".
func ParseSide(s string) (Side, error) {
	switch v := Side(strings.ToLower(s)); v {
	case SideLong, SideShort:
		return v, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "side must be long or short, got %q", s)
	}
}

// InstructionFor maps an (enter/exit, long/short) pair to the broker instruction.
func InstructionFor(enterOrExit EnterOrExit, side Side) (Instruction, error) {
	switch {
	case enterOrExit == Enter && side == SideLong:
		return InstructionBuy, nil
	case enterOrExit == Enter && side == SideShort:
		return InstructionSellShort, nil
	case enterOrExit == Exit && side == SideLong:
		return InstructionSell, nil
	case enterOrExit == Exit && side == SideShort:
		return InstructionBuyToCover, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "no instruction for %q/%q", enterOrExit, side)
	}
}

// Opposite returns the instruction that closes or reverses i.
func (i Instruction) Opposite() Instruction {
	switch i {
	case InstructionBuy:
		return InstructionSell
	case InstructionSell:
		return InstructionBuy
	case InstructionSellShort:
		return InstructionBuyToCover
	case InstructionBuyToCover:
		return InstructionSellShort
	default:
		return i
	}
}

// IsBuy reports whether the instruction acquires shares.
func (i Instruction) IsBuy() bool {
	return i == InstructionBuy || i == InstructionBuyToCover
}

type Instrument struct {
	Symbol    string    `json:"symbol"`
	AssetType AssetType `json:"assetType"`
}

type OrderLeg struct {
	Instruction Instruction `json:"instruction"`
	Quantity    float64     `json:"quantity"`
	Instrument  Instrument  `json:"instrument"`
}

// Order is the broker-shaped order document. Price fields are absent unless
// the order type requires them.
type Order struct {
	OrderStrategyType    OrderStrategyType        `json:"orderStrategyType"`
	OrderType            OrderType                `json:"orderType"`
	Session              Session                  `json:"session"`
	Duration             Duration                 `json:"duration"`
	CancelTime           string                   `json:"cancelTime,omitempty"`
	Price                optional.Option[float64] `json:"price,omitempty"`
	StopPrice            optional.Option[float64] `json:"stopPrice,omitempty"`
	StopPriceLinkBasis   string                   `json:"stopPriceLinkBasis,omitempty"`
	StopPriceLinkType    string                   `json:"stopPriceLinkType,omitempty"`
	StopPriceOffset      optional.Option[float64] `json:"stopPriceOffset,omitempty"`
	StopType             string                   `json:"stopType,omitempty"`
	OrderLegCollection   []OrderLeg               `json:"orderLegCollection"`
	ChildOrderStrategies []Order                  `json:"childOrderStrategies,omitempty"`
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	c := o
	c.Price = cloneOption(o.Price)
	c.StopPrice = cloneOption(o.StopPrice)
	c.StopPriceOffset = cloneOption(o.StopPriceOffset)

	if o.OrderLegCollection != nil {
		c.OrderLegCollection = make([]OrderLeg, len(o.OrderLegCollection))
		copy(c.OrderLegCollection, o.OrderLegCollection)
	}

	if o.ChildOrderStrategies != nil {
		c.ChildOrderStrategies = make([]Order, len(o.ChildOrderStrategies))
		for i, child := range o.ChildOrderStrategies {
			c.ChildOrderStrategies[i] = child.Clone()
		}
	}

	return c
}

// Symbol returns the symbol of the first leg, or "" when the order has no legs.
func (o Order) Symbol() string {
	if len(o.OrderLegCollection) == 0 {
		return ""
	}

	return o.OrderLegCollection[0].Instrument.Symbol
}

// ReferencePrice is the price the order is anchored to: the limit price when
// set, otherwise the stop price.
func (o Order) ReferencePrice() (float64, bool) {
	if o.Price.IsSome() {
		return o.Price.Unwrap(), true
	}

	if o.StopPrice.IsSome() {
		return o.StopPrice.Unwrap(), true
	}

	return 0, false
}

func cloneOption(o optional.Option[float64]) optional.Option[float64] {
	if o.IsNone() {
		return optional.None[float64]()
	}

	return optional.Some(o.Unwrap())
}

// OrderResponse records one submitted or simulated order.
type OrderResponse struct {
	OrderID     string    `json:"order_id"`
	RequestBody Order     `json:"request_body"`
	Timestamp   time.Time `json:"timestamp"`
}
