package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "probe_sessions_total",
		Help: "Probe sessions by outcome",
	}, []string{"outcome"})

	ConnectionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "probe_connection_latency_seconds",
		Help:    "Dial to open-event latency (network round trip baseline)",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1.0, 2.0},
	})

	EndToEndLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "probe_end_to_end_latency_seconds",
		Help:    "First audio chunk sent to first transcript received",
		Buckets: []float64{0.1, 0.2, 0.3, 0.5, 0.8, 1.0, 1.5, 2.0, 5.0},
	})

	ProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "probe_processing_latency_seconds",
		Help:    "Estimated model processing latency (end-to-end minus one-way network)",
		Buckets: []float64{0.05, 0.1, 0.2, 0.3, 0.35, 0.5, 0.8, 1.0, 2.0},
	})

	AudioChunksSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_audio_chunks_sent_total",
		Help: "Audio chunks streamed to the transcription endpoint",
	})

	TranscriptsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "probe_transcripts_received_total",
		Help: "Non-empty transcripts received across probe sessions",
	})
)
