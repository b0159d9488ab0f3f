package timeline

import (
	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
)

// LatencyReport is the derived, read-only decomposition of a completed
// Timeline. Nil fields mean the quantity could not be measured; a missing
// mark or an out-of-order pair yields nil, never a negative latency.
type LatencyReport struct {
	// ConnectionLatencyMs is the dial-to-open duration: the network
	// round-trip baseline to the transcription service.
	ConnectionLatencyMs *float64 `json:"connection_latency_ms"`

	// EndToEndLatencyMs is first audio chunk sent → first transcript back.
	EndToEndLatencyMs *float64 `json:"end_to_end_latency_ms"`

	// EstimatedProcessingLatencyMs is EndToEnd minus half the connection
	// latency. Halving attributes one direction of the round trip to the
	// result path; it is a heuristic estimate, not a measured quantity.
	EstimatedProcessingLatencyMs *float64 `json:"estimated_processing_latency_ms"`

	// Classification labels the estimated processing latency against the
	// configured bands. Empty when processing latency is undefined.
	Classification string `json:"classification,omitempty"`

	// Transcripts received during the session, in arrival order.
	TranscriptCount int `json:"transcript_count"`
}

// Decompose derives a LatencyReport from tl using the fixed arithmetic model:
//
//	connection_latency = connection_established − connection_start
//	end_to_end_latency = first_result_received − first_audio_sent
//	processing_latency = end_to_end − connection/2
//
// It is a pure function: tl is not modified.
func Decompose(tl *Timeline, bands config.ProcessingBands) LatencyReport {
	var r LatencyReport
	r.TranscriptCount = len(tl.Transcripts())

	if start, ok := tl.ConnectionStart(); ok {
		if est, ok := tl.ConnectionEstablished(); ok && !est.Before(start) {
			ms := est.Sub(start).Seconds() * 1000
			r.ConnectionLatencyMs = &ms
		}
	}

	if sent, ok := tl.FirstAudioSent(); ok {
		if recv, ok := tl.FirstResultReceived(); ok && !recv.Before(sent) {
			ms := recv.Sub(sent).Seconds() * 1000
			r.EndToEndLatencyMs = &ms
		}
	}

	if r.ConnectionLatencyMs != nil && r.EndToEndLatencyMs != nil {
		ms := *r.EndToEndLatencyMs - *r.ConnectionLatencyMs/2
		r.EstimatedProcessingLatencyMs = &ms
		r.Classification = bands.Classify(ms)
	}

	return r
}
