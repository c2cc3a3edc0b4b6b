package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	mutations *prometheus.CounterVec
	rollbacks *prometheus.CounterVec
	remote    *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "mutations_total",
			Help:      "Board mutations by operation and result.",
		}, []string{"op", "result"}),
		rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kanban",
			Name:      "rollbacks_total",
			Help:      "Speculative snapshots restored after a failed remote call.",
		}, []string{"op"}),
		remote: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kanban",
			Name:      "remote_duration_seconds",
			Help:      "Latency of remote mutation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.mutations, m.rollbacks, m.remote)
	}
	return m
}

func (m *metrics) result(op Op, result string) {
	m.mutations.WithLabelValues(string(op), result).Inc()
}

func (m *metrics) rollback(op Op) {
	m.rollbacks.WithLabelValues(string(op)).Inc()
}

func (m *metrics) observe(op Op, d time.Duration) {
	m.remote.WithLabelValues(string(op)).Observe(d.Seconds())
}
