package mocks

//go:generate mockgen -destination=./mock_broker.go -package=mocks github.com/rxtech-lab/argo-robot/internal/trading/provider Broker,OrderPlacer
//go:generate mockgen -destination=./mock_order_store.go -package=mocks github.com/rxtech-lab/argo-robot/internal/trading/execution OrderStore
