// Command turnreport analyzes agent logs: it extracts per-turn latency
// metrics from turn-completion lines, aggregates and grades them, and can
// record runs for cross-variant comparison.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/compare"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/env"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/report"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/stats"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/turns"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	jsonOut := flag.Bool("json", false, "emit the report as JSON")
	thresholds := flag.String("config", "", "YAML threshold configuration file")
	record := flag.String("record", "", "variant tag to record this run under")
	storePath := flag.String("store", env.Str("RESULTS_STORE_PATH", "latency_results.jsonl"), "results store path")
	compareTags := flag.String("compare", "", "compare two variant tags: tagA,tagB")
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadThresholds(*thresholds)
	if err != nil {
		slog.Error("load thresholds", "error", err)
		os.Exit(1)
	}

	if *compareTags != "" {
		if err := runCompare(*compareTags, *storePath, cfg, *jsonOut); err != nil {
			slog.Error("compare failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}
	logPath := flag.Arg(0)

	turnMetrics, err := turns.ExtractFile(logPath)
	if err != nil {
		slog.Error("extract turns", "log_file", logPath, "error", err)
		os.Exit(1)
	}

	rep := stats.Analyze(turnMetrics, cfg)

	if *jsonOut {
		if err := report.JSON(os.Stdout, rep); err != nil {
			slog.Error("encode report", "error", err)
			os.Exit(1)
		}
	} else {
		report.WriteAggregate(os.Stdout, rep)
	}

	if *record != "" && !rep.NoData {
		store := compare.NewStore(*storePath, cfg.Improvements)
		if err := store.Append(recordFor(*record, rep)); err != nil {
			slog.Error("record result", "error", err)
			os.Exit(1)
		}
		slog.Info("result recorded", "tag", *record, "store", *storePath)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <log_file>\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Analyze per-turn latency from agent logs.")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nExamples:")
	fmt.Fprintf(os.Stderr, "  %s logs/agent_820.err\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -record inference logs/agent_820.err\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -compare plugin,inference\n", os.Args[0])
}

func loadThresholds(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runCompare(tags, storePath string, cfg *config.Config, jsonOut bool) error {
	tagA, tagB, ok := splitTags(tags)
	if !ok {
		return fmt.Errorf("invalid -compare value %q, want tagA,tagB", tags)
	}

	store := compare.NewStore(storePath, cfg.Improvements)
	cmp, err := store.Compare(tagA, tagB)
	if err != nil {
		return err
	}

	if jsonOut {
		return report.JSON(os.Stdout, cmp)
	}
	report.WriteComparison(os.Stdout, cmp)
	return nil
}

func splitTags(s string) (string, string, bool) {
	a, b, found := strings.Cut(s, ",")
	if !found || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

func recordFor(tag string, rep *stats.AggregateReport) compare.Record {
	return compare.Record{
		VariantTag: tag,
		Metrics: map[string]any{
			"turns":            rep.Turns,
			"eou_mean_s":       rep.EOU.MeanS,
			"llm_mean_s":       rep.LLM.MeanS,
			"tts_mean_s":       rep.TTS.MeanS,
			"total_mean_s":     rep.Total.MeanS,
			"total_p50_s":      rep.TotalP50S,
			"total_p95_s":      rep.TotalP95S,
			"grade":            rep.Grade,
			"gap_to_target_ms": rep.GapToTargetMs,
		},
	}
}
