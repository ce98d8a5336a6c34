package metrics

import (
	"github.com/md-rashed-zaman/slotbook/libs/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Notification counts outbound template sends. A nil *Notification is a no-op.
type Notification struct {
	sends *prometheus.CounterVec
}

func NewNotification(reg prometheus.Registerer) *Notification {
	m := &Notification{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notification",
			Name:      "template_sends_total",
			Help:      "Outbound WhatsApp template sends by template and status.",
		}, []string{"template", "status"}),
	}
	reg.MustRegister(m.sends)
	return m
}

func (m *Notification) ObserveSend(template, status string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(template, status).Inc()
}
