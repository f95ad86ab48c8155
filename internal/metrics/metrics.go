// Package metrics provides Prometheus metrics for driver processes and
// WebDriver sessions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for the result label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	connectAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chrometester",
		Subsystem: "connect",
		Name:      "attempts_total",
		Help:      "WebDriver handshake attempts by result",
	}, []string{"result"})

	connectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "chrometester",
		Subsystem: "connect",
		Name:      "duration_seconds",
		Help:      "Time from driver start to an established session, or to giving up",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "chrometester",
		Name:      "sessions_active",
		Help:      "Established sessions not yet closed",
	})

	driverStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chrometester",
		Subsystem: "driver",
		Name:      "starts_total",
		Help:      "Driver process launches by result",
	}, []string{"result"})
)

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}

// RecordConnectAttempt counts one handshake.
func RecordConnectAttempt(ok bool) {
	connectAttempts.WithLabelValues(result(ok)).Inc()
}

// ObserveConnectDuration records how long establishing a session took.
func ObserveConnectDuration(d time.Duration) {
	connectDuration.Observe(d.Seconds())
}

// RecordDriverStart counts one driver launch.
func RecordDriverStart(ok bool) {
	driverStarts.WithLabelValues(result(ok)).Inc()
}

// SessionOpened marks a session as active.
func SessionOpened() {
	sessionsActive.Inc()
}

// SessionClosed marks a session as no longer active.
func SessionClosed() {
	sessionsActive.Dec()
}

// Handler returns the Prometheus metrics HTTP handler for all
// promauto-registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
