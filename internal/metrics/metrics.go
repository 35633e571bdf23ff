// Package metrics 导出 Prometheus 指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var webhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroute",
	Name:      "webhook_requests_total",
	Help:      "Webhook calls by endpoint and status.",
}, []string{"endpoint", "status"})

var webhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "evroute",
	Name:      "webhook_request_duration_seconds",
	Help:      "Webhook call latency.",
	Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
}, []string{"endpoint"})

var droppedStations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroute",
	Name:      "normalizer_dropped_stations_total",
	Help:      "Station records discarded during normalization.",
}, []string{"list"})

var fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroute",
	Name:      "fallback_responses_total",
	Help:      "Responses served from sample data.",
}, []string{"kind", "reason"})

var geocoderLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroute",
	Name:      "geocoder_lookups_total",
	Help:      "Geocoder lookups by provider and result.",
}, []string{"provider", "result"})

var sessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroute",
	Name:      "session_events_total",
	Help:      "Session lifecycle events.",
}, []string{"event"})

var wsClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "evroute",
	Name:      "ws_clients_active",
	Help:      "Number of connected websocket clients.",
})

// ObserveWebhook 记录一次 webhook 调用，status 为 0 表示网络错误
func ObserveWebhook(endpoint string, status int, elapsed time.Duration) {
	label := "network_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	webhookRequests.With(prometheus.Labels{"endpoint": endpoint, "status": label}).Inc()
	webhookDuration.With(prometheus.Labels{"endpoint": endpoint}).Observe(elapsed.Seconds())
}

func DroppedStations(list string, count int) {
	if count <= 0 {
		return
	}
	droppedStations.With(prometheus.Labels{"list": list}).Add(float64(count))
}

func Fallback(kind, reason string) {
	fallbacks.With(prometheus.Labels{"kind": kind, "reason": reason}).Inc()
}

func GeocoderLookup(provider, result string) {
	if len(provider) == 0 {
		return
	}
	geocoderLookups.With(prometheus.Labels{"provider": provider, "result": result}).Inc()
}

func SessionEvent(event string) {
	sessionEvents.With(prometheus.Labels{"event": event}).Inc()
}

func ObserveClients(count int) {
	wsClients.Set(float64(count))
}
