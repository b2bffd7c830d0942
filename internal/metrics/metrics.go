// Package metrics exposes the robot's Prometheus counters.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "argo_robot"

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bars_total", Help: "Bars appended to the time series store"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "signals_total", Help: "Buy and sell signals produced by the rule engine"},
		[]string{"symbol", "side"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "orders_total", Help: "Orders submitted or simulated"},
		[]string{"symbol", "side", "mode"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "order_failures_total", Help: "Orders rejected by the broker"},
		[]string{"symbol"},
	)
	OrderLogFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "order_log_failures_total", Help: "Failed writes to the order log"},
	)
	FetchRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "fetch_retries_total", Help: "Retried latest-bar fetches"},
		[]string{"symbol"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one fetch-evaluate-execute cycle",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		BarsTotal,
		SignalsTotal,
		OrdersTotal,
		OrderFailuresTotal,
		OrderLogFailuresTotal,
		FetchRetriesTotal,
		CycleDuration,
	)
}

// ObserveCycle records the time elapsed since start.
func ObserveCycle(start time.Time) {
	CycleDuration.Observe(time.Since(start).Seconds())
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
