package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestServeRegistersMetrics() {
	srv := Serve(":0")
	defer srv.Close()

	BarsTotal.WithLabelValues("BTCUSDT").Inc()
	ObserveCycle(time.Now())

	mfs, err := prometheus.DefaultGatherer.Gather()
	suite.Require().NoError(err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	suite.True(names["argo_robot_bars_total"])
	suite.True(names["argo_robot_cycle_duration_seconds"])
}

func (suite *MetricsTestSuite) TestOrdersCounter() {
	before := testutil.ToFloat64(OrdersTotal.WithLabelValues("ETHUSDT", "buy", "paper"))
	OrdersTotal.WithLabelValues("ETHUSDT", "buy", "paper").Inc()
	suite.InDelta(before+1, testutil.ToFloat64(OrdersTotal.WithLabelValues("ETHUSDT", "buy", "paper")), 1e-9)
}
