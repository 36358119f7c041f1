// Package metrics exposes the dispatcher's prometheus collectors.
package metrics

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func metricLabels() prometheus.Labels {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "judge-dispatcher"
	}
	instance := os.Getenv("INSTANCE_ID")
	if instance == "" {
		instance, _ = os.Hostname()
	}
	return prometheus.Labels{"service": service, "instance": instance}
}

var reg = prometheus.WrapRegistererWith(metricLabels(), prometheus.DefaultRegisterer)

// Dispatch outcomes.
const (
	OutcomeJudged    = "judged"
	OutcomeQueued    = "queued"
	OutcomeSystemErr = "system_error"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

var (
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_total",
			Help: "Dispatch attempts by outcome",
		},
		[]string{"outcome"},
	)

	dispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "End-to-end dispatch latency including the judge round trip",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
		},
	)

	judgeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "judge_request_duration_seconds",
			Help:    "Judge server request latency",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 180},
		},
		[]string{"endpoint"},
	)

	pendingPushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_queue_pushed_total",
			Help: "Jobs parked because no judge server had capacity",
		},
	)

	pendingDrained = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pending_queue_drained_total",
			Help: "Jobs taken from the pending queue and re-published",
		},
	)

	heartbeats = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "judge_server_heartbeats_total",
			Help: "Accepted judge server heartbeats",
		},
	)
)

func init() {
	reg.MustRegister(dispatchTotal)
	reg.MustRegister(dispatchDuration)
	reg.MustRegister(judgeRequestDuration)
	reg.MustRegister(pendingPushed)
	reg.MustRegister(pendingDrained)
	reg.MustRegister(heartbeats)
}

func ObserveDispatch(outcome string, elapsed time.Duration) {
	dispatchTotal.WithLabelValues(outcome).Inc()
	dispatchDuration.Observe(elapsed.Seconds())
}

func ObserveJudgeRequest(endpoint string, elapsed time.Duration) {
	judgeRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func IncPendingPushed() {
	pendingPushed.Inc()
}

func IncPendingDrained() {
	pendingDrained.Inc()
}

func IncHeartbeat() {
	heartbeats.Inc()
}
