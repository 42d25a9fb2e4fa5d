package fiction

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type fictionMetrics struct {
	actions  *prometheus.CounterVec
	restarts prometheus.Counter
	reloads  *prometheus.CounterVec
}

var (
	fictionMetricsOnce sync.Once
	fictionMetricsInst *fictionMetrics
)

func globalFictionMetrics() *fictionMetrics {
	fictionMetricsOnce.Do(func() {
		fictionMetricsInst = newFictionMetrics()
	})
	return fictionMetricsInst
}

func newFictionMetrics() *fictionMetrics {
	return &fictionMetrics{
		actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "fiction",
			Name:      "actions_applied_total",
			Help:      "Scenario actions applied to the user store, labeled by kind",
		}, []string{"kind"}),
		restarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "fiction",
			Name:      "restarts_total",
			Help:      "Scenario replays triggered by a repeat ending",
		}),
		reloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fingerd",
			Subsystem: "fiction",
			Name:      "reloads_total",
			Help:      "Scenario file reloads, labeled by result",
		}, []string{"result"}),
	}
}

func (m *fictionMetrics) recordAction(action Action) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actionKind(action)).Inc()
}

func actionKind(action Action) string {
	switch action.(type) {
	case CreateUser:
		return "create"
	case EditUser:
		return "update"
	case DeleteUser:
		return "delete"
	case Login:
		return "login"
	case SessionChange:
		return "session"
	case Logout:
		return "logout"
	default:
		return "unknown"
	}
}
