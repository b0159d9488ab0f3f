package main

import (
	"time"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/env"
)

type probeConfig struct {
	endpoint      string
	apiKey        string
	model         string
	encoding      string
	sampleRate    int
	connectBudget time.Duration
	drainWindow   time.Duration
	storePath     string
	metricsAddr   string
}

func loadConfig() probeConfig {
	return probeConfig{
		endpoint:      env.Str("DEEPGRAM_ENDPOINT", "wss://api.deepgram.com/v1/listen"),
		apiKey:        env.Str("DEEPGRAM_API_KEY", ""),
		model:         env.Str("DEEPGRAM_MODEL", "nova-2"),
		encoding:      env.Str("DEEPGRAM_ENCODING", "linear16"),
		sampleRate:    env.Int("DEEPGRAM_SAMPLE_RATE", 16000),
		connectBudget: env.Duration("PROBE_CONNECT_BUDGET", 5*time.Second),
		drainWindow:   env.Duration("PROBE_DRAIN_WINDOW", 2*time.Second),
		storePath:     env.Str("RESULTS_STORE_PATH", "latency_results.jsonl"),
		metricsAddr:   env.Str("METRICS_ADDR", ":9090"),
	}
}
