package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks notification volume.
type Metrics struct {
	Created prometheus.Counter
	Read    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_notifications_created_total",
			Help: "Total number of notifications created",
		}),
		Read: factory.NewCounter(prometheus.CounterOpts{
			Name: "casedesk_notifications_read_total",
			Help: "Notifications flipped from unread to read",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.Created.Inc()
}

func (m *Metrics) AddRead(n int) {
	m.Read.Add(float64(n))
}
