// Package metrics contains the Prometheus collectors of the player.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	// Demux metrics
	PacketsRead    *prometheus.CounterVec
	PacketsDropped *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec

	// Presentation metrics
	FramesPresented *prometheus.CounterVec
	DecodeErrors    *prometheus.CounterVec
	AudioBytes      prometheus.Counter

	// Sync metrics
	DriftCorrections prometheus.Counter
	DriftAmount      prometheus.Histogram
	SyncWait         prometheus.Histogram
}

// New creates all metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		PacketsRead: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "player_packets_read_total",
				Help: "Total number of compressed packets routed to a stream queue",
			},
			[]string{"stream"}, // video or audio
		),
		PacketsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "player_packets_dropped_total",
				Help: "Total number of packets dropped by the demuxer",
			},
			[]string{"reason"},
		),
		QueueDepth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "player_queue_depth",
				Help: "Packets waiting in a stream queue",
			},
			[]string{"stream"},
		),

		FramesPresented: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "player_frames_presented_total",
				Help: "Total number of decoded units handed to a sink",
			},
			[]string{"stream"},
		),
		DecodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "player_decode_errors_total",
				Help: "Total number of fatal decode errors",
			},
			[]string{"stream"},
		),
		AudioBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "player_audio_bytes_total",
			Help: "Total number of PCM bytes written to the audio sink",
		}),

		DriftCorrections: f.NewCounter(prometheus.CounterOpts{
			Name: "player_drift_corrections_total",
			Help: "Total number of clock rebases",
		}),
		DriftAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "player_drift_correction_seconds",
			Help:    "Amount the clock reference was moved forward",
			Buckets: prometheus.ExponentialBuckets(0.3, 2, 8), // 300ms to ~38s
		}),
		SyncWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "player_sync_wait_seconds",
			Help:    "Requested presentation waits",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~512ms
		}),
	}
}

// Handler returns the HTTP handler that exposes the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
