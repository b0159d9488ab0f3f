// Package turns extracts per-turn latency breakdowns from voice agent
// runtime logs.
//
// The agent marks every completed conversational turn with a single log line:
//
//	🎯 TURN COMPLETE - speech_ab12: STT=0.600s, LLM_TTFT=0.400s, TTS_TTFB=0.200s, Total_Latency=1.200s
//
// Each field is matched independently, so surrounding free-form text and
// field order do not matter. A line missing any of the five tokens, or with
// an unparsable duration, is skipped silently: agent logs are frequently
// truncated mid-write or interleaved with other output, and a noisy line
// must not abort the whole analysis.
package turns

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// completionMarker flags a turn-completion record.
const completionMarker = "🎯 TURN COMPLETE"

// Field extractors, compiled once. The duration pattern matches the agent's
// fixed "name=1.234s" form; non-negative by construction.
var (
	reTurnID = regexp.MustCompile(`speech_([a-f0-9]+)`)
	reEOU    = regexp.MustCompile(`STT=([\d.]+)s`)
	reLLM    = regexp.MustCompile(`LLM_TTFT=([\d.]+)s`)
	reTTS    = regexp.MustCompile(`TTS_TTFB=([\d.]+)s`)
	reTotal  = regexp.MustCompile(`Total_Latency=([\d.]+)s`)
)

// TurnMetrics is the latency breakdown of one conversational turn.
// Immutable once extracted; sequence order is log order.
type TurnMetrics struct {
	// TurnID is the agent-assigned speech segment identifier.
	TurnID string `json:"turn_id"`

	// EOUDelayS is the end-of-utterance detection duration in seconds.
	EOUDelayS float64 `json:"eou_delay_s"`

	// LLMFirstTokenS is the time to the language model's first token.
	LLMFirstTokenS float64 `json:"llm_first_token_s"`

	// TTSFirstByteS is the time to the first synthesized audio byte.
	TTSFirstByteS float64 `json:"tts_first_byte_s"`

	// TotalLatencyS spans user-stops-speaking to agent-starts-responding.
	TotalLatencyS float64 `json:"total_latency_s"`
}

// Extract reads log lines from r and returns the turn metrics found, in log
// order. It only fails on read errors; malformed lines are skipped.
func Extract(r io.Reader) ([]TurnMetrics, error) {
	var out []TurnMetrics

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if tm, ok := parseLine(sc.Text()); ok {
			out = append(out, tm)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("turns: read log: %w", err)
	}
	return out, nil
}

// ExtractFile extracts turn metrics from the log file at path.
func ExtractFile(path string) ([]TurnMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("turns: open log %q: %w", path, err)
	}
	defer f.Close()
	return Extract(f)
}

// parseLine extracts one TurnMetrics from a log line. Returns ok=false when
// the line is not a complete turn record.
func parseLine(line string) (TurnMetrics, bool) {
	if !strings.Contains(line, completionMarker) {
		return TurnMetrics{}, false
	}

	id := reTurnID.FindStringSubmatch(line)
	if id == nil {
		return TurnMetrics{}, false
	}

	eou, ok := matchDuration(reEOU, line)
	if !ok {
		return TurnMetrics{}, false
	}
	llm, ok := matchDuration(reLLM, line)
	if !ok {
		return TurnMetrics{}, false
	}
	tts, ok := matchDuration(reTTS, line)
	if !ok {
		return TurnMetrics{}, false
	}
	total, ok := matchDuration(reTotal, line)
	if !ok {
		return TurnMetrics{}, false
	}

	return TurnMetrics{
		TurnID:         id[1],
		EOUDelayS:      eou,
		LLMFirstTokenS: llm,
		TTSFirstByteS:  tts,
		TotalLatencyS:  total,
	}, true
}

func matchDuration(re *regexp.Regexp, line string) (float64, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
