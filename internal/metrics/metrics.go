package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level collectors. They are registered via Register.
var (
	regOK atomic.Bool

	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storewatch",
			Name:      "cycles_total",
			Help:      "Completed check cycles by result (ok, storage_error).",
		}, []string{"result"},
	)
	probeOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storewatch",
			Name:      "probe_outcomes_total",
			Help:      "Store probe verdicts (listed, not_listed, fail_open).",
		}, []string{"store", "outcome"},
	)
	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storewatch",
			Name:      "notifications_total",
			Help:      "Alert decisions (sent, failed, skipped, suppressed).",
		}, []string{"result"},
	)
	listed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "storewatch",
			Name:      "store_listed",
			Help:      "Last persisted listing state per store (1 = listed).",
		}, []string{"store"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storewatch",
			Name:      "cycle_duration_seconds",
			Help:      "Wall time of one check cycle.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{cycles, probeOutcomes, notifications, listed, cycleDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register succeeded.

func ObserveProbe(store, outcome string) {
	if regOK.Load() {
		probeOutcomes.WithLabelValues(store, outcome).Inc()
	}
}

func ObserveNotification(result string) {
	if regOK.Load() {
		notifications.WithLabelValues(result).Inc()
	}
}

func ObserveCycle(result string, d time.Duration) {
	if regOK.Load() {
		cycles.WithLabelValues(result).Inc()
		cycleDuration.Observe(d.Seconds())
	}
}

func SetListed(store string, ok bool) {
	if !regOK.Load() {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	listed.WithLabelValues(store).Set(v)
}
