package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hostlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	bridgeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "Outbound commands by wire shape and send result.",
		},
		[]string{"shape", "result"},
	)
	bridgeReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "replies_total",
			Help:      "Inbound replies by dispatch path.",
		},
		[]string{"path"},
	)
	bridgeDrops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "dropped_total",
			Help:      "Inbound messages discarded before dispatch.",
		},
		[]string{"reason"},
	)
	bridgeSafeTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "safe_timeouts_total",
			Help:      "Requests settled by the safe-timeout sentinel.",
		},
	)
	bridgeReplyLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "reply_latency_seconds",
			Help:      "Time from send to first settle.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	bridgePending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hostlink",
			Subsystem: "bridge",
			Name:      "pending",
			Help:      "Requests awaiting a reply.",
		},
	)
)

// Dispatch paths for inbound replies.
const (
	PathContinuation = "continuation"
	PathCallback     = "callback"
	PathUnmatched    = "unmatched"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bridgeRequests,
			bridgeReplies,
			bridgeDrops,
			bridgeSafeTimeouts,
			bridgeReplyLatency,
			bridgePending,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordRequest(shape string, sent bool) {
	RegisterMetrics()
	result := "sent"
	if !sent {
		result = "failed"
	}
	bridgeRequests.WithLabelValues(shape, result).Inc()
}

func RecordReply(path string) {
	RegisterMetrics()
	bridgeReplies.WithLabelValues(path).Inc()
}

func RecordDrop(reason string) {
	RegisterMetrics()
	bridgeDrops.WithLabelValues(reason).Inc()
}

func RecordSafeTimeout() {
	RegisterMetrics()
	bridgeSafeTimeouts.Inc()
}

func RecordSettle(latency time.Duration) {
	RegisterMetrics()
	bridgeReplyLatency.Observe(latency.Seconds())
}

// AddPending moves the in-flight gauge by delta. Every bridge in the process
// contributes to the same gauge.
func AddPending(delta int) {
	RegisterMetrics()
	bridgePending.Add(float64(delta))
}
