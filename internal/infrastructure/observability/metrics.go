package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	Purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_purchases_total",
			Help: "Purchase attempts by outcome",
		},
		[]string{"product", "outcome"},
	)

	DepositsCredited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "store_deposits_credited_total",
			Help: "Confirmed deposits credited to balances",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(RepositoryCalls, RepositoryDuration, Purchases, DepositsCredited)
}
