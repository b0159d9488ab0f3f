package turns

import (
	"reflect"
	"strings"
	"testing"
)

const sampleLine = "🎯 TURN COMPLETE - speech_ab12: STT=0.600s, LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s"

func TestExtract_SingleRecord(t *testing.T) {
	got, err := Extract(strings.NewReader(sampleLine + "\n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []TurnMetrics{{
		TurnID:         "ab12",
		EOUDelayS:      0.6,
		LLMFirstTokenS: 0.4,
		TTSFirstByteS:  0.2,
		TotalLatencyS:  1.2,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract:\n got %+v\nwant %+v", got, want)
	}
}

func TestExtract_SurroundingNoiseAndFieldOrder(t *testing.T) {
	log := `
2025-10-14 09:31:02 INFO agent starting up
2025-10-14 09:31:44 DEBUG 🎯 TURN COMPLETE - Total_Latency=0.950s TTS_TTFB=0.150s speech_0fce LLM_TTFT=0.300s STT=0.500s (pid 820)
2025-10-14 09:31:45 INFO unrelated line
`
	got, err := Extract(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 record, got %d", len(got))
	}
	if got[0].TurnID != "0fce" || got[0].TotalLatencyS != 0.95 {
		t.Errorf("unexpected record: %+v", got[0])
	}
}

func TestExtract_MissingTokenSkipsLine(t *testing.T) {
	// Each line drops exactly one of the five required tokens.
	lines := []string{
		"🎯 TURN COMPLETE - STT=0.600s, LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s",                 // no turn id
		"🎯 TURN COMPLETE - speech_ab12: LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s",                // no STT
		"🎯 TURN COMPLETE - speech_ab12: STT=0.600s, TTS_TTFB=0.200s, Total_Latency=1.200s",                     // no LLM
		"🎯 TURN COMPLETE - speech_ab12: STT=0.600s, LLM_TTFT=0.400s, Total_Latency=1.200s",                     // no TTS
		"🎯 TURN COMPLETE - speech_ab12: STT=0.600s, LLM_TTFT=0.400s, TTS_TTFB=0.200s",                          // no total
		"speech_ab12: STT=0.600s, LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s",                      // no marker
		"🎯 TURN COMPLETE - speech_ab12: STT=..s, LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s",       // unparsable STT
	}
	got, err := Extract(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("partial records extracted: %+v", got)
	}
}

func TestExtract_SkippedLineDoesNotAbortStream(t *testing.T) {
	log := sampleLine + "\n" +
		"🎯 TURN COMPLETE - garbage line\n" +
		"🎯 TURN COMPLETE - speech_ff01: STT=0.700s, LLM_TTFT=0.500s, TTS_TTFB=0.250s, Total_Latency=1.450s\n"

	got, err := Extract(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].TurnID != "ab12" || got[1].TurnID != "ff01" {
		t.Errorf("records out of log order: %+v", got)
	}
}

func TestExtract_Idempotent(t *testing.T) {
	log := strings.Repeat(sampleLine+"\nnoise\n", 10)

	first, err := Extract(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := Extract(strings.NewReader(log))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("extraction is not idempotent over identical input")
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	got, err := Extract(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("want no records, got %d", len(got))
	}
}

func TestExtractFile_Missing(t *testing.T) {
	if _, err := ExtractFile("/no/such/agent.log"); err == nil {
		t.Error("expected error for missing log file")
	}
}
