// Package report renders latency and turn analyses as human-readable text
// or machine-readable JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/compare"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/stats"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/timeline"
)

const (
	ruleWide   = 80
	ruleNarrow = 60
)

// JSON writes v as indented JSON followed by a newline.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteLatency renders a probe latency breakdown as text. Undefined
// measurements print as "n/a" rather than zero.
func WriteLatency(w io.Writer, rep *timeline.LatencyReport) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", ruleNarrow))
	fmt.Fprintln(w, "LATENCY BREAKDOWN")
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", ruleNarrow))

	fmt.Fprintf(w, "Connection latency (roundtrip):  %s\n", fmtMs(rep.ConnectionLatencyMs))
	fmt.Fprintf(w, "Total latency (end-to-end):      %s\n", fmtMs(rep.EndToEndLatencyMs))
	fmt.Fprintf(w, "Processing latency (estimated):  %s\n", fmtMs(rep.EstimatedProcessingLatencyMs))
	fmt.Fprintf(w, "Transcripts received:            %d\n", rep.TranscriptCount)

	if rep.Classification != "" {
		fmt.Fprintf(w, "\nModel performance: %s\n", rep.Classification)
	}
	if rep.EndToEndLatencyMs == nil {
		fmt.Fprintln(w, "\nNo transcripts received; end-to-end latency is undefined")
	}
	fmt.Fprintf(w, "%s\n", strings.Repeat("=", ruleNarrow))
}

func fmtMs(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f ms", *v)
}

// WriteAggregate renders the full turn analysis: per-turn breakdown, stage
// averages, recommendations, and the overall grade.
func WriteAggregate(w io.Writer, rep *stats.AggregateReport) {
	if rep.NoData {
		fmt.Fprintln(w, "No turn data found in log file")
		return
	}

	rule := strings.Repeat("=", ruleWide)
	dash := strings.Repeat("-", ruleWide)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "AGENT RESPONSE TIME ANALYSIS")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintln(w, "\nMetric: time from user stops speaking to agent starts responding")
	fmt.Fprintf(w, "Total turns: %d\n\n", rep.Turns)

	fmt.Fprintln(w, "Turn-by-turn breakdown:")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "%-12s %12s %-10s\n", "Turn", "Total", "Rating")
	fmt.Fprintln(w, dash)
	for _, tr := range rep.PerTurn {
		fmt.Fprintf(w, "%-12s %11.3fs %-10s\n", tr.TurnID, tr.TotalLatencyS, tr.Rating)
	}
	fmt.Fprintln(w, dash)

	fmt.Fprintln(w, "\nAverage metrics:")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "End-of-utterance detection: %.3fs (%.1f%% of total)\n", rep.EOU.MeanS, rep.EOUPct)
	fmt.Fprintf(w, "LLM first token:            %.3fs (%.1f%% of total)\n", rep.LLM.MeanS, rep.LLMPct)
	fmt.Fprintf(w, "TTS first byte:             %.3fs (%.1f%% of total)\n", rep.TTS.MeanS, rep.TTSPct)
	fmt.Fprintf(w, "\n%-30s %.3fs\n", "AVERAGE RESPONSE TIME:", rep.Total.MeanS)
	fmt.Fprintf(w, "%-30s %.3fs\n", "BEST (fastest):", rep.Total.MinS)
	fmt.Fprintf(w, "%-30s %.3fs\n", "WORST (slowest):", rep.Total.MaxS)
	fmt.Fprintf(w, "%-30s %.3fs\n", "P50:", rep.TotalP50S)
	fmt.Fprintf(w, "%-30s %.3fs\n", "P95:", rep.TotalP95S)

	fmt.Fprintln(w, "\nOptimization recommendations:")
	fmt.Fprintln(w, dash)
	for _, rec := range rep.Recommendations {
		fmt.Fprintf(w, "[%s] %s: %s\n", rec.Severity, rec.Stage, rec.Text)
	}

	fmt.Fprintln(w, "\nOverall assessment:")
	fmt.Fprintln(w, dash)
	fmt.Fprintf(w, "Grade: %s\n", rep.Grade)
	fmt.Fprintf(w, "Feedback: %s\n", rep.Feedback)
	if rep.GapToTargetMs > 0 {
		fmt.Fprintf(w, "Improvement needed: -%.0fms to reach target\n", rep.GapToTargetMs)
	}
	fmt.Fprintf(w, "%s\n", rule)
}

// WriteComparison renders a cross-variant comparison, including the
// insufficient-data outcome.
func WriteComparison(w io.Writer, cmp *compare.Comparison) {
	rule := strings.Repeat("=", ruleNarrow)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "LATENCY COMPARISON ANALYSIS")
	fmt.Fprintf(w, "%s\n", rule)

	if !cmp.Sufficient {
		fmt.Fprintf(w, "\nNot enough data to compare: no records for %s\n",
			strings.Join(cmp.MissingTags, ", "))
		fmt.Fprintln(w, "Run measurements under both variants first.")
		return
	}

	writeVariant(w, cmp.TagA, cmp.CountA, cmp.LatestA)
	writeVariant(w, cmp.TagB, cmp.CountB, cmp.LatestB)

	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "EXPECTED IMPROVEMENTS:")
	fmt.Fprintf(w, "%s\n", rule)
	for _, imp := range cmp.ExpectedImprovements {
		fmt.Fprintf(w, "%-6s %-16s (%s -> %s)\n", imp.Stage+":", imp.Delta, imp.Before, imp.After)
	}
}

func writeVariant(w io.Writer, tag string, count int, latest *compare.Record) {
	fmt.Fprintf(w, "\n%s (%d records):\n", tag, count)
	if latest == nil {
		return
	}
	fmt.Fprintf(w, "   Latest: %s\n", latest.Timestamp.Format(time.RFC3339))
	keys := make([]string, 0, len(latest.Metrics))
	for k := range latest.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "   %s: %v\n", k, latest.Metrics[k])
	}
}
