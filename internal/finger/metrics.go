package finger

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	connections prometheus.Counter
	queries     *prometheus.CounterVec
	malformed   prometheus.Counter
	faults      prometheus.Counter
}

var (
	serverMetricsOnce sync.Once
	serverMetricsInst *serverMetrics
)

func globalServerMetrics() *serverMetrics {
	serverMetricsOnce.Do(func() {
		serverMetricsInst = newServerMetrics()
	})
	return serverMetricsInst
}

func newServerMetrics() *serverMetrics {
	return &serverMetrics{
		connections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Accepted finger connections",
		}),
		queries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "server",
			Name:      "queries_total",
			Help:      "Answered finger queries, labeled by kind",
		}, []string{"kind"}),
		malformed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "server",
			Name:      "malformed_queries_total",
			Help:      "Queries rejected by the decoder",
		}),
		faults: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "server",
			Name:      "connection_faults_total",
			Help:      "Connections that ended with an unexpected error",
		}),
	}
}

func (m *serverMetrics) recordQuery(kind string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(kind).Inc()
}
