// Package metrics exposes Prometheus collectors for simulated sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livesim_sessions_live",
		Help: "Number of sessions currently live",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livesim_sessions_started_total",
		Help: "Sessions that went live, including restarts",
	})

	sessionViewers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livesim_session_viewers",
		Help: "Current viewer count per session",
	}, []string{"session_id"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesim_events_total",
		Help: "Session events emitted, partitioned by type",
	}, []string{"type"})

	eventPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livesim_event_publish_errors_total",
		Help: "Session events that could not be published to the bus",
	}, []string{"type"})

	torchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livesim_torch_failures_total",
		Help: "Failed flash toggles",
	})

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livesim_ws_clients",
		Help: "Connected websocket clients",
	})
)

func SessionStarted() {
	liveSessions.Inc()
	sessionsStarted.Inc()
}

func SessionEnded() { liveSessions.Dec() }

func SetViewers(sessionID string, n int) {
	sessionViewers.WithLabelValues(sessionID).Set(float64(n))
}

// ForgetSession drops the per-session series once a session is deleted.
func ForgetSession(sessionID string) {
	sessionViewers.DeleteLabelValues(sessionID)
}

func EventEmitted(eventType string) { eventsTotal.WithLabelValues(eventType).Inc() }

func EventPublishFailed(eventType string) { eventPublishErrors.WithLabelValues(eventType).Inc() }

func TorchFailed() { torchFailures.Inc() }

func ClientConnected() { wsClients.Inc() }

func ClientDisconnected() { wsClients.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
