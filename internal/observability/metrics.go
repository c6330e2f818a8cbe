package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_http_requests_total",
			Help: "Total number of HTTP requests processed by the communication service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comms_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "comms_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	realtimeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_realtime_events_total",
			Help: "Realtime change events by table, type and outcome.",
		},
		[]string{"table", "event_type", "outcome"},
	)
	realtimeStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_realtime_status_total",
			Help: "Realtime channel status transitions.",
		},
		[]string{"status"},
	)
	realtimeChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "comms_realtime_channels",
			Help: "Number of project channels currently listened to.",
		},
	)
	bootstrapDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comms_bootstrap_duration_seconds",
			Help:    "Duration of project state loads.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
	collectionFetchErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_collection_fetch_errors_total",
			Help: "Collection fetch failures.",
		},
		[]string{"collection"},
	)
	actionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_action_errors_total",
			Help: "Failed write actions.",
		},
		[]string{"action"},
	)
	activeManagers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "comms_active_managers",
			Help: "Number of project state managers currently running.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		realtimeEventsTotal,
		realtimeStatusTotal,
		realtimeChannels,
		bootstrapDuration,
		collectionFetchErrorsTotal,
		actionErrorsTotal,
		activeManagers,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

// IncRealtimeEvent counts a change event; outcome is applied, ignored or malformed.
func IncRealtimeEvent(table, eventType, outcome string) {
	realtimeEventsTotal.WithLabelValues(table, eventType, outcome).Inc()
}

func IncRealtimeStatus(status string) {
	realtimeStatusTotal.WithLabelValues(status).Inc()
}

func SetRealtimeChannels(n int) {
	realtimeChannels.Set(float64(n))
}

func ObserveBootstrap(outcome string, d time.Duration) {
	bootstrapDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func IncCollectionFetchError(collection string) {
	collectionFetchErrorsTotal.WithLabelValues(collection).Inc()
}

func IncActionError(action string) {
	actionErrorsTotal.WithLabelValues(action).Inc()
}

func IncActiveManagers() {
	activeManagers.Inc()
}

func DecActiveManagers() {
	activeManagers.Dec()
}
