package tradingprovider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// BinanceDecimalPrecision is the fallback quantity precision.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC).
	BinanceDecimalPrecision = 8
	// binanceKlinesLimit is the page size used when paging through klines.
	binanceKlinesLimit = 1000
)

// Service interfaces for mocking the Binance API

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	StopPrice(stopPrice string) CreateOrderService
	TimeInForce(tif binance.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// KlinesService interface for fetching candlesticks.
type KlinesService interface {
	Symbol(symbol string) KlinesService
	Interval(interval string) KlinesService
	StartTime(startTime int64) KlinesService
	EndTime(endTime int64) KlinesService
	Limit(limit int) KlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// ListPricesService interface for fetching last prices.
type ListPricesService interface {
	Symbols(symbols []string) ListPricesService
	Do(ctx context.Context) ([]*binance.SymbolPrice, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetAccountService() GetAccountService
	NewKlinesService() KlinesService
	NewListPricesService() ListPricesService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

func (r *realBinanceClient) NewKlinesService() KlinesService {
	return &realKlinesService{service: r.client.NewKlinesService()}
}

func (r *realBinanceClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.client.NewListPricesService()}
}

// Real service wrappers

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)

	return s
}

func (s *realCreateOrderService) StopPrice(stopPrice string) CreateOrderService {
	s.service = s.service.StopPrice(stopPrice)

	return s
}

func (s *realCreateOrderService) TimeInForce(tif binance.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

type realKlinesService struct {
	service *binance.KlinesService
}

func (s *realKlinesService) Symbol(symbol string) KlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realKlinesService) Interval(interval string) KlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *realKlinesService) StartTime(startTime int64) KlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *realKlinesService) EndTime(endTime int64) KlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *realKlinesService) Limit(limit int) KlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *realKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *binance.ListPricesService
}

func (s *realListPricesService) Symbols(symbols []string) ListPricesService {
	s.service = s.service.Symbols(symbols)

	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*binance.SymbolPrice, error) {
	return s.service.Do(ctx)
}

// BinanceBroker implements Broker on the Binance spot API. It is stateless;
// every call goes to the API. The account is selected by the API key, so the
// account argument of PlaceOrder is only used for error messages.
type BinanceBroker struct {
	client           BinanceClient
	decimalPrecision int
	now              func() time.Time
}

// NewBinanceBroker creates a broker. If useTestnet is true it connects to the
// Binance testnet. A BaseURL in config takes precedence over useTestnet.
func NewBinanceBroker(config BinanceProviderConfig, useTestnet bool) *BinanceBroker {
	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return newBinanceBrokerWithClient(&realBinanceClient{client: client})
}

// newBinanceBrokerWithClient creates a broker with a custom client.
// This is used for testing with mock clients.
func newBinanceBrokerWithClient(client BinanceClient) *BinanceBroker {
	return &BinanceBroker{
		client:           client,
		decimalPrecision: BinanceDecimalPrecision,
		now:              time.Now,
	}
}

// Login checks the API key by reading the account.
func (b *BinanceBroker) Login(ctx context.Context) error {
	if _, err := b.client.NewGetAccountService().Do(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeBrokerLoginFailed, "failed to get account info from Binance", err)
	}

	return nil
}

// GetQuotes returns the last traded price of each symbol.
func (b *BinanceBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]types.Quote, error) {
	prices, err := b.client.NewListPricesService().Symbols(symbols).Do(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataFetchFailed, "failed to list prices from Binance", err)
	}

	now := b.now()
	quotes := make(map[string]types.Quote, len(prices))

	for _, p := range prices {
		price, err := strconv.ParseFloat(p.Price, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid price %q for %s", p.Price, p.Symbol)
		}

		quotes[p.Symbol] = types.Quote{Symbol: p.Symbol, LastPrice: price, Time: now}
	}

	return quotes, nil
}

// GetPriceHistory pages through the klines between req.Start and req.End.
func (b *BinanceBroker) GetPriceHistory(ctx context.Context, req types.PriceHistoryRequest) (types.PriceHistory, error) {
	history := types.PriceHistory{Symbol: req.Symbol, Candles: []types.Candle{}, Error: ""}

	interval, err := binanceInterval(req.FrequencyType, req.Frequency)
	if err != nil {
		return history, err
	}

	endTimeMillis := req.End.UnixMilli()
	currentStartTime := req.Start.UnixMilli()

	for {
		klines, err := b.client.NewKlinesService().
			Symbol(req.Symbol).
			Interval(interval).
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binanceKlinesLimit).
			Do(ctx)
		if err != nil {
			return history, errors.Wrapf(errors.ErrCodeDataFetchFailed, err, "failed to fetch klines for %s from Binance", req.Symbol)
		}

		candles, err := klinesToCandles(klines)
		if err != nil {
			return history, err
		}

		history.Candles = append(history.Candles, candles...)

		if len(klines) < binanceKlinesLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	return history, nil
}

func klinesToCandles(klines []*binance.Kline) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)

		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline value %q", raw)
			}

			values[i] = v
		}

		candles = append(candles, types.Candle{
			Open:       values[0],
			High:       values[1],
			Low:        values[2],
			Close:      values[3],
			Volume:     values[4],
			DatetimeMs: k.OpenTime,
		})
	}

	return candles, nil
}

// binanceInterval converts a frequency to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
func binanceInterval(frequencyType string, frequency int) (string, error) {
	if frequency <= 0 {
		frequency = 1
	}

	switch frequencyType {
	case "minute", "":
		if frequency%60 == 0 {
			return fmt.Sprintf("%dh", frequency/60), nil
		}

		return fmt.Sprintf("%dm", frequency), nil
	case "daily":
		return fmt.Sprintf("%dd", frequency), nil
	case "weekly":
		if frequency == 1 {
			return "1w", nil
		}
	case "monthly":
		if frequency == 1 {
			return "1M", nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported frequency for Binance: %d %s", frequency, frequencyType)
}

// PlaceOrder submits a single-leg order. Bracket and trailing stop orders are
// not supported on the spot API.
func (b *BinanceBroker) PlaceOrder(ctx context.Context, account string, order types.Order) (PlaceOrderResult, error) {
	result := PlaceOrderResult{OrderID: "", RequestBody: order}

	if len(order.ChildOrderStrategies) > 0 {
		return result, errors.Newf(errors.ErrCodeUnsupportedOrderType, "%s orders with child strategies are not supported on Binance", order.OrderStrategyType)
	}

	if len(order.OrderLegCollection) != 1 {
		return result, errors.Newf(errors.ErrCodeInvalidOrder, "expected exactly one order leg, got %d", len(order.OrderLegCollection))
	}

	leg := order.OrderLegCollection[0]

	var side binance.SideType

	switch leg.Instruction {
	case types.InstructionBuy, types.InstructionBuyToCover:
		side = binance.SideTypeBuy
	case types.InstructionSell:
		side = binance.SideTypeSell
	default:
		return result, errors.Newf(errors.ErrCodeUnsupportedOrderType, "unsupported instruction on Binance spot: %s", leg.Instruction)
	}

	var orderType binance.OrderType

	switch order.OrderType {
	case types.OrderTypeMarket:
		orderType = binance.OrderTypeMarket
	case types.OrderTypeLimit:
		orderType = binance.OrderTypeLimit
	case types.OrderTypeStop:
		orderType = binance.OrderTypeStopLoss
	case types.OrderTypeStopLimit:
		orderType = binance.OrderTypeStopLossLimit
	default:
		return result, errors.Newf(errors.ErrCodeUnsupportedOrderType, "unsupported order type on Binance: %s", order.OrderType)
	}

	quantity := decimal.NewFromFloat(leg.Quantity).Truncate(int32(b.decimalPrecision))
	if !quantity.IsPositive() {
		return result, errors.Newf(errors.ErrCodeInvalidQuantity,
			"order quantity %.8f is too small after rounding to %d decimal places", leg.Quantity, b.decimalPrecision)
	}

	service := b.client.NewCreateOrderService().
		Symbol(leg.Instrument.Symbol).
		Side(side).
		Type(orderType).
		Quantity(quantity.String())

	if order.Price.IsSome() {
		service = service.
			Price(strconv.FormatFloat(order.Price.Unwrap(), 'f', -1, 64)).
			TimeInForce(binance.TimeInForceTypeGTC)
	}

	if order.StopPrice.IsSome() {
		service = service.StopPrice(strconv.FormatFloat(order.StopPrice.Unwrap(), 'f', -1, 64))
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return result, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to place order for account %s on Binance", account)
	}

	result.OrderID = strconv.FormatInt(resp.OrderID, 10)

	return result, nil
}
