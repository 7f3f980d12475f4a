package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeRetriesTotal *prometheus.CounterVec
	metricsOnce       = make(chan struct{}, 1)
)

func initStoreMetricsOnce() {
	select {
	case metricsOnce <- struct{}{}:
		storeRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "biasguard_store_retries_total",
				Help: "Total retry attempts against the backing store",
			},
			[]string{"operation"},
		)
	default:
		// already initialized
	}
}

func observeStoreRetry(op string) {
	if storeRetriesTotal == nil {
		return
	}
	storeRetriesTotal.WithLabelValues(op).Inc()
}
