// Command latencyprobe measures streaming transcription latency: it dials a
// Deepgram-style endpoint, streams audio at real-time pace, and decomposes
// the observed latency into connection and processing components.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/audio"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/compare"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/metrics"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/probe"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/report"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/timeline"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := loadConfig()

	audioPath := flag.String("audio", "", "WAV file to stream (16-bit PCM); synthetic audio when empty")
	endpoint := flag.String("endpoint", cfg.endpoint, "streaming transcription endpoint")
	model := flag.String("model", cfg.model, "transcription model")
	jsonOut := flag.Bool("json", false, "emit the report as JSON")
	thresholds := flag.String("config", "", "YAML threshold configuration file")
	connectOnly := flag.Bool("connect-only", false, "measure connection latency only, no audio")
	record := flag.String("record", "", "variant tag to record this run under")
	storePath := flag.String("store", cfg.storePath, "results store path")
	watch := flag.Bool("watch", false, "probe repeatedly and expose Prometheus metrics")
	interval := flag.Duration("interval", 30*time.Second, "probe interval in watch mode")
	flag.Parse()

	bands, err := loadThresholds(*thresholds)
	if err != nil {
		slog.Error("load thresholds", "error", err)
		os.Exit(1)
	}

	client := probe.NewClient(*endpoint, cfg.apiKey)
	client.Model = *model
	client.Encoding = cfg.encoding
	client.SampleRate = cfg.sampleRate

	prober := probe.NewProber(client, slog.Default())
	prober.ConnectBudget = cfg.connectBudget
	prober.DrainWindow = cfg.drainWindow

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *connectOnly {
		elapsed, err := prober.MeasureConnection(ctx)
		if err != nil {
			slog.Error("connection probe failed", "error", err)
			os.Exit(1)
		}
		slog.Info("connection established", "latency_ms", float64(elapsed.Microseconds())/1000)
		return
	}

	if *watch {
		runWatch(ctx, prober, bands, *audioPath, cfg, *interval)
		return
	}

	rep, err := runOnce(ctx, prober, bands, *audioPath, cfg)
	if err != nil {
		slog.Error("probe failed", "error", err)
		os.Exit(1)
	}

	if *jsonOut {
		if err := report.JSON(os.Stdout, rep); err != nil {
			slog.Error("encode report", "error", err)
			os.Exit(1)
		}
	} else {
		report.WriteLatency(os.Stdout, rep)
	}

	if *record != "" {
		store := compare.NewStore(*storePath, bands.Improvements)
		if err := store.Append(recordFor(*record, rep)); err != nil {
			slog.Error("record result", "error", err)
			os.Exit(1)
		}
		slog.Info("result recorded", "tag", *record, "store", *storePath)
	}
}

func loadThresholds(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newSource opens the WAV file when given, otherwise generates three
// seconds of synthetic speech-like audio.
func newSource(path string, sampleRate int) (audio.Source, error) {
	if path == "" {
		return audio.NewSyntheticSource(3*time.Second, sampleRate, audio.DefaultChunkDuration), nil
	}
	return audio.NewFileSource(path, audio.DefaultChunkDuration)
}

func runOnce(ctx context.Context, prober *probe.Prober, cfg *config.Config, audioPath string, pc probeConfig) (*timeline.LatencyReport, error) {
	src, err := newSource(audioPath, pc.sampleRate)
	if err != nil {
		return nil, err
	}

	tl, err := prober.Run(ctx, src)
	if err != nil {
		return nil, err
	}

	rep := timeline.Decompose(tl, cfg.Processing)
	observe(&rep)
	return &rep, nil
}

func observe(rep *timeline.LatencyReport) {
	if rep.ConnectionLatencyMs != nil {
		metrics.ConnectionLatency.Observe(*rep.ConnectionLatencyMs / 1000)
	}
	if rep.EndToEndLatencyMs != nil {
		metrics.EndToEndLatency.Observe(*rep.EndToEndLatencyMs / 1000)
	}
	if rep.EstimatedProcessingLatencyMs != nil {
		metrics.ProcessingLatency.Observe(*rep.EstimatedProcessingLatencyMs / 1000)
	}
}

func recordFor(tag string, rep *timeline.LatencyReport) compare.Record {
	m := map[string]any{
		"transcript_count": rep.TranscriptCount,
	}
	if rep.ConnectionLatencyMs != nil {
		m["connection_latency_ms"] = *rep.ConnectionLatencyMs
	}
	if rep.EndToEndLatencyMs != nil {
		m["end_to_end_latency_ms"] = *rep.EndToEndLatencyMs
	}
	if rep.EstimatedProcessingLatencyMs != nil {
		m["estimated_processing_latency_ms"] = *rep.EstimatedProcessingLatencyMs
		m["classification"] = rep.Classification
	}
	return compare.Record{VariantTag: tag, Metrics: m}
}

// runWatch probes at a fixed interval until interrupted, exposing the
// accumulated histograms over HTTP.
func runWatch(ctx context.Context, prober *probe.Prober, cfg *config.Config, audioPath string, pc probeConfig, interval time.Duration) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: pc.metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server", "error", err)
		}
	}()
	defer srv.Shutdown(context.Background())

	slog.Info("watch mode started", "interval", interval, "metrics_addr", pc.metricsAddr)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rep, err := runOnce(ctx, prober, cfg, audioPath, pc)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("probe failed", "error", err)
		} else {
			slog.Info("probe completed",
				"connection_ms", deref(rep.ConnectionLatencyMs),
				"e2e_ms", deref(rep.EndToEndLatencyMs),
				"classification", rep.Classification)
		}

		select {
		case <-ctx.Done():
			slog.Info("watch mode stopped")
			return
		case <-ticker.C:
		}
	}
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
