package tradingprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// MarketDataProvider serves quotes and price history.
type MarketDataProvider interface {
	// GetQuotes returns the last price of every symbol.
	GetQuotes(ctx context.Context, symbols []string) (map[string]types.Quote, error)
	// GetPriceHistory returns the bars of one symbol. Provider-side failures that
	// still produce an answer are reported in PriceHistory.Error.
	GetPriceHistory(ctx context.Context, req types.PriceHistoryRequest) (types.PriceHistory, error)
}

// PlaceOrderResult is the broker's acknowledgement of a submitted order.
type PlaceOrderResult struct {
	OrderID     string      `json:"order_id"`
	RequestBody types.Order `json:"request_body"`
}

// OrderPlacer submits orders to a brokerage account.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, account string, order types.Order) (PlaceOrderResult, error)
}

// Broker is an authenticated brokerage session.
type Broker interface {
	MarketDataProvider
	OrderPlacer
	// Login verifies the credentials and opens the session.
	Login(ctx context.Context) error
}

// Session joins a market data provider and an order placer into a Broker.
// Login is delegated to every part that supports it.
type Session struct {
	MarketDataProvider
	OrderPlacer
}

// NewSession creates a broker from separate data and order providers.
func NewSession(data MarketDataProvider, orders OrderPlacer) *Session {
	return &Session{
		MarketDataProvider: data,
		OrderPlacer:        orders,
	}
}

type loginer interface {
	Login(ctx context.Context) error
}

// Login logs in every part of the session that needs it.
func (s *Session) Login(ctx context.Context) error {
	if l, ok := s.MarketDataProvider.(loginer); ok {
		if err := l.Login(ctx); err != nil {
			return err
		}
	}

	if l, ok := s.OrderPlacer.(loginer); ok {
		if err := l.Login(ctx); err != nil {
			return err
		}
	}

	return nil
}

// NoopOrderPlacer rejects every order. It backs market-data-only sessions that
// run in paper mode.
type NoopOrderPlacer struct{}

func (NoopOrderPlacer) PlaceOrder(_ context.Context, _ string, order types.Order) (PlaceOrderResult, error) {
	return PlaceOrderResult{}, errors.Newf(errors.ErrCodeOrderFailed, "no order provider configured for %s", order.Symbol()) //nolint:exhaustruct
}

type ProviderType string

const (
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
	ProviderPolygon      ProviderType = "polygon"
)

type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	IsPaperTrading bool   `json:"isPaperTrading"`
	PlacesOrders   bool   `json:"placesOrders"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		Description:    "Binance testnet for trading without real funds",
		IsPaperTrading: true,
		PlacesOrders:   true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		Description:    "Binance live environment for real-funds trading",
		IsPaperTrading: false,
		PlacesOrders:   true,
	},
	ProviderPolygon: {
		Name:           string(ProviderPolygon),
		DisplayName:    "Polygon",
		Description:    "Polygon.io aggregates for US equities; market data only",
		IsPaperTrading: true,
		PlacesOrders:   false,
	},
}

// GetSupportedProviders returns the provider names in ascending order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName) //nolint:exhaustruct
	}

	return info, nil
}

// GetProviderConfigSchema returns the JSON schema of a provider's credentials.
func GetProviderConfigSchema(providerName string) (string, error) {
	var cfg any

	switch ProviderType(providerName) {
	case ProviderBinancePaper, ProviderBinanceLive:
		cfg = &BinanceProviderConfig{}
	case ProviderPolygon:
		cfg = &PolygonProviderConfig{}
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	r := new(jsonschema.Reflector)
	r.DoNotReference = true

	raw, err := json.Marshal(r.Reflect(cfg))
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(raw), nil
}

// NewBroker creates the broker for providerType. Polygon sessions cannot place orders.
func NewBroker(providerType ProviderType, binanceCfg BinanceProviderConfig, polygonCfg PolygonProviderConfig) (Broker, error) {
	switch providerType {
	case ProviderBinancePaper, ProviderBinanceLive:
		if err := binanceCfg.Validate(); err != nil {
			return nil, err
		}

		return NewBinanceBroker(binanceCfg, providerType == ProviderBinancePaper), nil
	case ProviderPolygon:
		if err := polygonCfg.Validate(); err != nil {
			return nil, err
		}

		return NewSession(NewPolygonProvider(polygonCfg), NoopOrderPlacer{}), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerType)
	}
}
