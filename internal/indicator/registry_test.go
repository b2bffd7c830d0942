package indicator

import (
	"fmt"
	"testing"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

func constant(v float64) WindowFunc {
	return func(_ []types.Bar) (float64, error) {
		return v, nil
	}
}

func definition(name string) Definition {
	return Definition{Name: name, Fn: constant(1), Period: 1}
}

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterIndicator() {
	registry := NewIndicatorRegistry()
	err := registry.RegisterIndicator(Definition{Name: "rsi", Fn: RSI, Period: 15})
	suite.NoError(err)

	retrieved, err := registry.GetIndicator("rsi")
	suite.NoError(err)
	suite.Equal("rsi", retrieved.Name)
	suite.Equal(15, retrieved.Period)
	suite.NotNil(retrieved.Fn)
}

func (suite *RegistryTestSuite) TestRegisterIndicatorDuplicate() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(definition("rsi")))

	err := registry.RegisterIndicator(definition("rsi"))
	suite.Error(err)
	suite.Contains(err.Error(), "already registered")
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
}

func (suite *RegistryTestSuite) TestRegisterIndicatorInvalid() {
	registry := NewIndicatorRegistry()

	err := registry.RegisterIndicator(Definition{Name: "sma", Fn: SMA, Period: 0})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))

	err = registry.RegisterIndicator(Definition{Name: "", Fn: SMA, Period: 3})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	err = registry.RegisterIndicator(Definition{Name: "sma", Fn: nil, Period: 3})
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	suite.Empty(registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestGetIndicatorNotFound() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator("rsi")
	suite.Error(err)
	suite.Contains(err.Error(), "not found")
}

func (suite *RegistryTestSuite) TestListIndicatorsKeepsOrder() {
	registry := NewIndicatorRegistry()
	suite.Empty(registry.ListIndicators())

	suite.NoError(registry.RegisterIndicator(definition("rsi")))
	suite.NoError(registry.RegisterIndicator(definition("macd")))
	suite.NoError(registry.RegisterIndicator(definition("ema_20")))

	defs := registry.ListIndicators()
	suite.Require().Len(defs, 3)
	suite.Equal("rsi", defs[0].Name)
	suite.Equal("macd", defs[1].Name)
	suite.Equal("ema_20", defs[2].Name)
}

func (suite *RegistryTestSuite) TestRemoveIndicator() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator(definition("rsi")))
	suite.NoError(registry.RegisterIndicator(definition("sma_50")))

	suite.NoError(registry.RemoveIndicator("rsi"))

	_, err := registry.GetIndicator("rsi")
	suite.Error(err)

	defs := registry.ListIndicators()
	suite.Require().Len(defs, 1)
	suite.Equal("sma_50", defs[0].Name)
}

func (suite *RegistryTestSuite) TestRemoveIndicatorNotFound() {
	registry := NewIndicatorRegistry()

	err := registry.RemoveIndicator("rsi")
	suite.Error(err)
	suite.Contains(err.Error(), "not found")
}

func (suite *RegistryTestSuite) TestConcurrentAccess() {
	registry := NewIndicatorRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(idx int) {
			_ = registry.RegisterIndicator(definition(fmt.Sprintf("ind_%d", idx)))
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	suite.Len(registry.ListIndicators(), 10)
}
