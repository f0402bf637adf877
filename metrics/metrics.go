package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "path", "status"},
	)

	bootPhaseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boot_phase_total",
			Help: "Boot phases by outcome",
		},
		[]string{"phase", "result"},
	)

	provisioningState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "provisioning_state",
			Help: "Resolved provisioning state (1 for the active state)",
		},
		[]string{"state"},
	)

	loginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	authRateLimitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_rate_limit_total",
			Help: "Total auth rate limit blocks",
		},
		[]string{"path"},
	)

	wifiEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wifi_events_total",
			Help: "Station events received from the radio",
		},
		[]string{"event"},
	)

	restartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_restarts_requested_total",
			Help: "Restart requests by reason",
		},
		[]string{"reason"},
	)

	uiEventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ui_events_dropped_total",
			Help: "UI events that could not be enqueued",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		bootPhaseTotal,
		provisioningState,
		loginAttemptsTotal,
		authRateLimitTotal,
		wifiEventsTotal,
		restartsTotal,
		uiEventsDroppedTotal,
	)
}

func ObserveHTTP(method, path, status string) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func ObserveHTTPDuration(method, path, status string, seconds float64) {
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(seconds)
}

func BootPhase(phase, result string) {
	bootPhaseTotal.WithLabelValues(phase, result).Inc()
}

// ProvisioningState marks state as the active one among all.
func ProvisioningState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		provisioningState.WithLabelValues(s).Set(v)
	}
}

func LoginAttempt(result string) {
	loginAttemptsTotal.WithLabelValues(result).Inc()
}

func AuthRateLimited(path string) {
	authRateLimitTotal.WithLabelValues(path).Inc()
}

func WiFiEvent(event string) {
	wifiEventsTotal.WithLabelValues(event).Inc()
}

func RestartRequested(reason string) {
	restartsTotal.WithLabelValues(reason).Inc()
}

func UIEventDropped(event string) {
	uiEventsDroppedTotal.WithLabelValues(event).Inc()
}
