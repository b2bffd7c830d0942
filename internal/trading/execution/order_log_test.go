package execution

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type OrderLogTestSuite struct {
	suite.Suite
	dir string
}

func TestOrderLogSuite(t *testing.T) {
	suite.Run(t, new(OrderLogTestSuite))
}

func (suite *OrderLogTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func response(id, symbol string) types.OrderResponse {
	return types.OrderResponse{
		OrderID: id,
		RequestBody: types.Order{
			OrderStrategyType: types.OrderStrategySingle,
			OrderType:         types.OrderTypeMarket,
			Session:           types.SessionNormal,
			Duration:          types.DurationDay,
			OrderLegCollection: []types.OrderLeg{{
				Instruction: types.InstructionBuy,
				Quantity:    1,
				Instrument:  types.Instrument{Symbol: symbol, AssetType: types.AssetTypeEquity},
			}},
		},
		Timestamp: time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC),
	}
}

func (suite *OrderLogTestSuite) TestLoadMissingFile() {
	log := NewOrderLog(filepath.Join(suite.dir, "missing.json"))

	responses, err := log.Load()
	suite.NoError(err)
	suite.Empty(responses)
}

func (suite *OrderLogTestSuite) TestSaveOrdersAppends() {
	path := filepath.Join(suite.dir, "nested", "dir", "orders.json")
	log := NewOrderLog(path)
	suite.Equal(path, log.Path())

	suite.Require().NoError(log.SaveOrders([]types.OrderResponse{response("1", "AAA")}))
	suite.Require().NoError(log.SaveOrders([]types.OrderResponse{response("2", "BBB"), response("3", "CCC")}))

	responses, err := log.Load()
	suite.Require().NoError(err)
	suite.Require().Len(responses, 3)
	suite.Equal("1", responses[0].OrderID)
	suite.Equal("CCC", responses[2].RequestBody.Symbol())
	suite.True(responses[0].Timestamp.Equal(time.Date(2025, 1, 6, 15, 30, 0, 0, time.UTC)))

	raw, err := os.ReadFile(path)
	suite.Require().NoError(err)
	suite.Contains(string(raw), "\n    {")
	suite.Contains(string(raw), `"order_id": "1"`)
	suite.NotContains(string(raw), `"price"`)
}

func (suite *OrderLogTestSuite) TestEmptyFile() {
	path := filepath.Join(suite.dir, "orders.json")
	suite.Require().NoError(os.WriteFile(path, []byte{}, 0o644))

	log := NewOrderLog(path)
	suite.Require().NoError(log.SaveOrders([]types.OrderResponse{response("1", "AAA")}))

	responses, err := log.Load()
	suite.NoError(err)
	suite.Len(responses, 1)
}

func (suite *OrderLogTestSuite) TestCorruptFile() {
	path := filepath.Join(suite.dir, "orders.json")
	suite.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	log := NewOrderLog(path)

	_, err := log.Load()
	suite.True(errors.HasCode(err, errors.ErrCodeOrderLogReadFailed))

	err = log.SaveOrders([]types.OrderResponse{response("1", "AAA")})
	suite.Error(err)
}
