package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик вызовов методов репозитория
	RepositoryCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_calls_total",
			Help: "Total number of repository method calls",
		},
		[]string{"method", "status"},
	)

	// Гистограмма времени выполнения запросов
	RepositoryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_duration_seconds",
			Help:    "Duration of repository method calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_transitions_total",
			Help: "Status transitions applied to payment requests",
		},
		[]string{"status"},
	)

	WalletAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_adjustments_total",
			Help: "Wallet credits and debits caused by status transitions",
		},
		[]string{"direction"},
	)

	WalletRecomputes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_recomputes_total",
			Help: "Destructive wallet resyncs from approved transaction totals",
		},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RepositoryCalls, RepositoryDuration, StatusTransitions, WalletAdjustments, WalletRecomputes)
	})
}
