package tradingprovider

import (
	"testing"

	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderConfigTestSuite struct {
	suite.Suite
}

func TestProviderConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderConfigTestSuite))
}

func (suite *ProviderConfigTestSuite) TestBinanceConfigValidate() {
	cfg := BinanceProviderConfig{ApiKey: "key", SecretKey: "secret"}
	suite.NoError(cfg.Validate())

	cfg.BaseURL = "not a url"
	suite.Error(cfg.Validate())

	missing := BinanceProviderConfig{ApiKey: "key"}
	err := missing.Validate()
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *ProviderConfigTestSuite) TestPolygonConfigValidate() {
	suite.NoError((&PolygonProviderConfig{ApiKey: "key"}).Validate())
	suite.Error((&PolygonProviderConfig{}).Validate())
}

func (suite *ProviderConfigTestSuite) TestProviderRegistry() {
	suite.Equal([]string{"binance-live", "binance-paper", "polygon"}, GetSupportedProviders())

	info, err := GetProviderInfo("polygon")
	suite.NoError(err)
	suite.False(info.PlacesOrders)

	_, err = GetProviderInfo("td-ameritrade")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *ProviderConfigTestSuite) TestProviderConfigSchema() {
	schema, err := GetProviderConfigSchema("binance-paper")
	suite.NoError(err)
	suite.Contains(schema, "apiKey")
	suite.Contains(schema, "secretKey")

	_, err = GetProviderConfigSchema("unknown")
	suite.Error(err)
}

func (suite *ProviderConfigTestSuite) TestNewBroker() {
	broker, err := NewBroker(ProviderPolygon, BinanceProviderConfig{}, PolygonProviderConfig{ApiKey: "key"})
	suite.NoError(err)
	suite.NotNil(broker)

	_, err = NewBroker(ProviderBinanceLive, BinanceProviderConfig{}, PolygonProviderConfig{})
	suite.Error(err)

	_, err = NewBroker("schwab", BinanceProviderConfig{}, PolygonProviderConfig{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}
