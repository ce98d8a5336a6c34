package metrics

import (
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Stats holds stats-service metrics. A nil *Stats is a no-op.
type Stats struct {
	aggregations *prometheus.CounterVec
	cacheHits    prometheus.Counter
	counters     *prometheus.CounterVec
}

func NewStats(reg prometheus.Registerer) *Stats {
	m := &Stats{
		aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "stats",
			Name:      "aggregations_total",
			Help:      "Month recomputations by outcome.",
		}, []string{"result"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "stats",
			Name:      "cache_hits_total",
			Help:      "Month requests answered from the stored record.",
		}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "stats",
			Name:      "counter_increments_total",
			Help:      "Site visit and new customer increments by outcome.",
		}, []string{"counter", "result"}),
	}
	reg.MustRegister(m.aggregations, m.cacheHits, m.counters)
	return m
}

func (m *Stats) ObserveAggregation(err error) {
	if m == nil {
		return
	}
	m.aggregations.WithLabelValues(result(err)).Inc()
}

func (m *Stats) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Stats) ObserveIncrement(counter string, err error) {
	if m == nil {
		return
	}
	m.counters.WithLabelValues(counter, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
