package metrics

import (
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Booking holds booking-service metrics. A nil *Booking is a no-op.
type Booking struct {
	slotRequests  *prometheus.CounterVec
	slotsOffered  prometheus.Histogram
	meetingWrites *prometheus.CounterVec
}

func NewBooking(reg prometheus.Registerer) *Booking {
	m := &Booking{
		slotRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "booking",
			Name:      "slot_requests_total",
			Help:      "Slot list requests by outcome.",
		}, []string{"result"}),
		slotsOffered: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "booking",
			Name:      "slots_offered",
			Help:      "Number of slots returned per request.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		meetingWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "booking",
			Name:      "meeting_writes_total",
			Help:      "Meeting mutations by operation and outcome.",
		}, []string{"op", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotRequests, m.slotsOffered, m.meetingWrites)
	return m
}

func (m *Booking) ObserveSlots(result string, offered int) {
	if m == nil {
		return
	}
	m.slotRequests.WithLabelValues(result).Inc()
	if result == "ok" {
		m.slotsOffered.Observe(float64(offered))
	}
}

func (m *Booking) ObserveWrite(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.meetingWrites.WithLabelValues(op, result).Inc()
}
