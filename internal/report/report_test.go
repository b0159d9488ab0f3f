package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/compare"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/stats"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/timeline"
)

func ptr(v float64) *float64 { return &v }

func TestWriteLatency(t *testing.T) {
	var buf bytes.Buffer
	WriteLatency(&buf, &timeline.LatencyReport{
		ConnectionLatencyMs:          ptr(50),
		EndToEndLatencyMs:            ptr(500),
		EstimatedProcessingLatencyMs: ptr(475),
		Classification:               "slightly slow",
		TranscriptCount:              3,
	})

	out := buf.String()
	for _, want := range []string{"50.00 ms", "500.00 ms", "475.00 ms", "slightly slow", "Transcripts received:            3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteLatencyUndefined(t *testing.T) {
	var buf bytes.Buffer
	WriteLatency(&buf, &timeline.LatencyReport{ConnectionLatencyMs: ptr(42)})

	out := buf.String()
	if !strings.Contains(out, "n/a") {
		t.Errorf("undefined measurements should print as n/a:\n%s", out)
	}
	if !strings.Contains(out, "end-to-end latency is undefined") {
		t.Errorf("missing undefined-latency note:\n%s", out)
	}
	if strings.Contains(out, "0.00 ms\nTotal") {
		t.Errorf("undefined latency rendered as zero:\n%s", out)
	}
}

func TestWriteAggregateNoData(t *testing.T) {
	var buf bytes.Buffer
	WriteAggregate(&buf, &stats.AggregateReport{NoData: true})
	if !strings.Contains(buf.String(), "No turn data") {
		t.Errorf("missing no-data message: %s", buf.String())
	}
}

func TestWriteAggregate(t *testing.T) {
	rep := &stats.AggregateReport{
		Turns: 2,
		EOU:   stats.FieldStats{MeanS: 0.5},
		LLM:   stats.FieldStats{MeanS: 0.3},
		TTS:   stats.FieldStats{MeanS: 0.2},
		Total: stats.FieldStats{MeanS: 1.0, MinS: 0.8, MaxS: 1.2},
		PerTurn: []stats.TurnRating{
			{TurnID: "ab12", TotalLatencyS: 0.8, Rating: "Excellent"},
			{TurnID: "cd34", TotalLatencyS: 1.2, Rating: "Good"},
		},
		Grade:    "A+ (Excellent)",
		Feedback: "Response time feels natural and immediate!",
	}

	var buf bytes.Buffer
	WriteAggregate(&buf, rep)

	out := buf.String()
	for _, want := range []string{"Total turns: 2", "ab12", "Excellent", "Grade: A+ (Excellent)", "AVERAGE RESPONSE TIME:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Improvement needed") {
		t.Errorf("no gap expected when target is met:\n%s", out)
	}
}

func TestWriteAggregateGap(t *testing.T) {
	rep := &stats.AggregateReport{
		Turns:         1,
		Total:         stats.FieldStats{MeanS: 2.3, MinS: 2.3, MaxS: 2.3},
		Grade:         "C (Fair)",
		GapToTargetMs: 1300,
	}

	var buf bytes.Buffer
	WriteAggregate(&buf, rep)
	if !strings.Contains(buf.String(), "-1300ms") {
		t.Errorf("missing gap line:\n%s", buf.String())
	}
}

func TestWriteComparisonInsufficient(t *testing.T) {
	var buf bytes.Buffer
	WriteComparison(&buf, &compare.Comparison{
		TagA:        "plugin",
		TagB:        "inference",
		MissingTags: []string{"inference"},
	})

	out := buf.String()
	if !strings.Contains(out, "Not enough data") || !strings.Contains(out, "inference") {
		t.Errorf("missing insufficient-data outcome:\n%s", out)
	}
}

func TestWriteComparison(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cmp := &compare.Comparison{
		TagA:       "plugin",
		TagB:       "inference",
		Sufficient: true,
		CountA:     2,
		CountB:     1,
		LatestA:    &compare.Record{VariantTag: "plugin", Timestamp: ts, Metrics: map[string]any{"total_ms": 900.0}},
		LatestB:    &compare.Record{VariantTag: "inference", Timestamp: ts, Metrics: map[string]any{"total_ms": 650.0}},
		ExpectedImprovements: []config.Improvement{
			{Stage: "STT", Delta: "70-100ms faster", Before: "100-150ms", After: "30-50ms"},
		},
	}

	var buf bytes.Buffer
	WriteComparison(&buf, cmp)

	out := buf.String()
	for _, want := range []string{"plugin (2 records)", "inference (1 records)", "70-100ms faster", "total_ms: 900"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, &timeline.LatencyReport{TranscriptCount: 2}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var got timeline.LatencyReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TranscriptCount != 2 {
		t.Errorf("TranscriptCount = %d, want 2", got.TranscriptCount)
	}
	if got.EndToEndLatencyMs != nil {
		t.Error("undefined latency should stay null in JSON")
	}
}
