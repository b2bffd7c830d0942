package tradingprovider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

const polygonAggsLimit = 50000

// PolygonAggsIterator iterates over aggregate bars.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient abstracts the Polygon REST client for testing.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type realPolygonAPIClient struct {
	client *polygon.Client
}

func (r *realPolygonAPIClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return r.client.ListAggs(ctx, params, options...)
}

// PolygonProvider serves market data from Polygon.io aggregates.
type PolygonProvider struct {
	apiClient PolygonAPIClient
	now       func() time.Time
}

// NewPolygonProvider creates a Polygon market data provider.
func NewPolygonProvider(config PolygonProviderConfig) *PolygonProvider {
	return newPolygonProviderWithClient(&realPolygonAPIClient{client: polygon.New(config.ApiKey)})
}

func newPolygonProviderWithClient(client PolygonAPIClient) *PolygonProvider {
	return &PolygonProvider{
		apiClient: client,
		now:       time.Now,
	}
}

// GetPriceHistory lists the aggregates between req.Start and req.End.
func (p *PolygonProvider) GetPriceHistory(ctx context.Context, req types.PriceHistoryRequest) (types.PriceHistory, error) {
	history := types.PriceHistory{Symbol: req.Symbol, Candles: []types.Candle{}, Error: ""}

	timespan, err := polygonTimespan(req.FrequencyType)
	if err != nil {
		return history, err
	}

	multiplier := req.Frequency
	if multiplier <= 0 {
		multiplier = 1
	}

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(req.Start),
		To:         models.Millis(req.End),
	}.WithLimit(polygonAggsLimit)

	iter := p.apiClient.ListAggs(ctx, params)
	for iter.Next() {
		history.Candles = append(history.Candles, aggToCandle(iter.Item()))
	}

	if iter.Err() != nil {
		return history, errors.Wrapf(errors.ErrCodeDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", req.Symbol)
	}

	return history, nil
}

// GetQuotes uses the close of the latest minute aggregate of the past day as
// the last price. Symbols without a recent aggregate are left out.
func (p *PolygonProvider) GetQuotes(ctx context.Context, symbols []string) (map[string]types.Quote, error) {
	now := p.now()
	quotes := make(map[string]types.Quote, len(symbols))

	for _, symbol := range symbols {
		//nolint:exhaustruct // third-party struct with many optional fields
		params := models.ListAggsParams{
			Ticker:     symbol,
			Multiplier: 1,
			Timespan:   models.Minute,
			From:       models.Millis(now.Add(-24 * time.Hour)),
			To:         models.Millis(now),
		}.WithOrder(models.Desc).WithLimit(1)

		iter := p.apiClient.ListAggs(ctx, params)
		if iter.Next() {
			agg := iter.Item()
			quotes[symbol] = types.Quote{Symbol: symbol, LastPrice: agg.Close, Time: time.Time(agg.Timestamp).UTC()}
		}

		if iter.Err() != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, iter.Err(), "failed to fetch quote for %s from polygon", symbol)
		}
	}

	return quotes, nil
}

func aggToCandle(agg models.Agg) types.Candle {
	return types.Candle{
		Open:       agg.Open,
		Close:      agg.Close,
		High:       agg.High,
		Low:        agg.Low,
		Volume:     agg.Volume,
		DatetimeMs: time.Time(agg.Timestamp).UnixMilli(),
	}
}

func polygonTimespan(frequencyType string) (models.Timespan, error) {
	switch frequencyType {
	case "minute", "":
		return models.Minute, nil
	case "daily":
		return models.Day, nil
	case "weekly":
		return models.Week, nil
	case "monthly":
		return models.Month, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported frequency type for polygon: %s", frequencyType)
	}
}
