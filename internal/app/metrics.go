package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the decode pipeline.
type Metrics struct {
	registry *prometheus.Registry

	framesTotal    prometheus.Counter
	decodedTotal   *prometheus.CounterVec // by protocol
	decodeErrors   prometheus.Counter
	notRemoteID    prometheus.Counter
	anomaliesTotal *prometheus.CounterVec // by type
	timeoutsTotal  prometheus.Counter
	activeUAVs     prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridscan_frames_total",
			Help: "Raw frames handed to the parser",
		}),
		decodedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ridscan_decoded_total",
			Help: "Successfully decoded Remote ID frames by protocol",
		}, []string{"protocol"}),
		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridscan_decode_errors_total",
			Help: "Frames recognized as Remote ID that failed to decode",
		}),
		notRemoteID: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridscan_not_remote_id_total",
			Help: "Frames no enabled decoder recognized",
		}),
		anomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ridscan_anomalies_total",
			Help: "Detected anomalies by type",
		}, []string{"type"}),
		timeoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ridscan_uav_timeouts_total",
			Help: "UAV records evicted by timeout",
		}),
		activeUAVs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ridscan_active_uavs",
			Help: "Currently tracked UAVs",
		}),
	}
}

// Serve exposes /metrics on addr. It blocks, so run it in a goroutine.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
