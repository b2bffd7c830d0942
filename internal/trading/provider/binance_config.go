package tradingprovider

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// BinanceProviderConfig contains the credentials for a Binance session.
type BinanceProviderConfig struct {
	ApiKey    string `json:"apiKey" yaml:"api_key" env:"API_KEY" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" env:"SECRET_KEY" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	BaseURL   string `json:"baseUrl,omitempty" yaml:"base_url,omitempty" env:"BASE_URL" jsonschema:"title=Base URL,description=Overrides the API endpoint" validate:"omitempty,url"`
}

// Validate validates the BinanceProviderConfig struct.
func (c *BinanceProviderConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid binance provider config", err)
	}

	return nil
}

// PolygonProviderConfig contains the credentials for Polygon.io.
type PolygonProviderConfig struct {
	ApiKey string `json:"apiKey" yaml:"api_key" env:"API_KEY" jsonschema:"title=API Key,description=Polygon.io API key" validate:"required"`
}

// Validate validates the PolygonProviderConfig struct.
func (c *PolygonProviderConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid polygon provider config", err)
	}

	return nil
}
