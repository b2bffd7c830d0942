package execution

import (
	"testing"

	"github.com/rxtech-lab/argo-robot/internal/trade"
	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/stretchr/testify/suite"
)

type BindingsTestSuite struct {
	suite.Suite
}

func TestBindingsSuite(t *testing.T) {
	suite.Run(t, new(BindingsTestSuite))
}

func (suite *BindingsTestSuite) TestBindAndReset() {
	buy, err := trade.NewTrade("b", "MARKET", types.Enter, types.SideLong, 0, 0)
	suite.Require().NoError(err)

	bindings := Bindings{}
	bindings.Bind("MSFT", buy, nil)
	bindings.Bind("AAPL", nil, nil)

	suite.Equal([]string{"AAPL", "MSFT"}, bindings.Symbols())
	suite.Same(buy, bindings["MSFT"].TradeFor(true))
	suite.Nil(bindings["MSFT"].TradeFor(false))

	bindings["MSFT"].HasExecuted = true
	bindings["AAPL"].HasExecuted = true
	bindings.ResetExecuted()

	suite.False(bindings["MSFT"].HasExecuted)
	suite.False(bindings["AAPL"].HasExecuted)
}
