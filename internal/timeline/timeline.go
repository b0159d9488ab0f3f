// Package timeline records lifecycle timestamps for one streaming probe
// session and derives latency figures from them.
//
// A Timeline is owned by a single probe session. The four lifecycle marks are
// set at most once, by the session's event callbacks, in the order
// connection start → connection established → first audio sent → first
// result received. Once the session's close event seals the timeline no
// further mutation is accepted.
package timeline

import (
	"sync"
	"time"
)

// TranscriptEntry is one received transcript with its arrival timestamp.
type TranscriptEntry struct {
	Text string
	At   time.Time
}

// Timeline is the mutable event record for one probe session.
// Thread-safe: callbacks and the send loop may touch it concurrently.
type Timeline struct {
	mu sync.Mutex

	connectionStart       *time.Time
	connectionEstablished *time.Time
	firstAudioSent        *time.Time
	firstResultReceived   *time.Time

	transcripts []TranscriptEntry
	sealed      bool
}

// New returns an empty Timeline.
func New() *Timeline {
	return &Timeline{}
}

// Reset clears all marks and transcripts so the Timeline can be reused for a
// new session. It also unseals the timeline.
func (tl *Timeline) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.connectionStart = nil
	tl.connectionEstablished = nil
	tl.firstAudioSent = nil
	tl.firstResultReceived = nil
	tl.transcripts = nil
	tl.sealed = false
}

// Seal marks the timeline terminal. Called on the session close event; every
// mutation afterwards is a no-op.
func (tl *Timeline) Seal() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.sealed = true
}

// MarkConnectionStart records the moment the dial began. First call wins.
func (tl *Timeline) MarkConnectionStart(t time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.sealed || tl.connectionStart != nil {
		return
	}
	tl.connectionStart = &t
}

// MarkConnectionEstablished records the open event. First call wins.
func (tl *Timeline) MarkConnectionEstablished(t time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.sealed || tl.connectionEstablished != nil {
		return
	}
	tl.connectionEstablished = &t
}

// MarkFirstAudioSent records the first outbound audio chunk. First call wins.
func (tl *Timeline) MarkFirstAudioSent(t time.Time) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.sealed || tl.firstAudioSent != nil {
		return
	}
	tl.firstAudioSent = &t
}

// AddResult records a received transcript. Empty transcripts are ignored.
// The first non-empty transcript that arrives after audio has been sent sets
// the first-result mark; results arriving before any audio was sent never set
// it (a spurious result cannot represent end-to-end latency).
func (tl *Timeline) AddResult(text string, t time.Time) {
	if text == "" {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.sealed {
		return
	}
	tl.transcripts = append(tl.transcripts, TranscriptEntry{Text: text, At: t})
	if tl.firstResultReceived == nil && tl.firstAudioSent != nil {
		tl.firstResultReceived = &t
	}
}

// ConnectionStart returns the dial timestamp, if set.
func (tl *Timeline) ConnectionStart() (time.Time, bool) { return tl.get(&tl.connectionStart) }

// ConnectionEstablished returns the open-event timestamp, if set.
func (tl *Timeline) ConnectionEstablished() (time.Time, bool) {
	return tl.get(&tl.connectionEstablished)
}

// FirstAudioSent returns the first-chunk timestamp, if set.
func (tl *Timeline) FirstAudioSent() (time.Time, bool) { return tl.get(&tl.firstAudioSent) }

// FirstResultReceived returns the first qualifying transcript timestamp, if set.
func (tl *Timeline) FirstResultReceived() (time.Time, bool) {
	return tl.get(&tl.firstResultReceived)
}

// Transcripts returns a copy of the received transcripts in arrival order.
func (tl *Timeline) Transcripts() []TranscriptEntry {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]TranscriptEntry, len(tl.transcripts))
	copy(out, tl.transcripts)
	return out
}

func (tl *Timeline) get(field **time.Time) (time.Time, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if *field == nil {
		return time.Time{}, false
	}
	return **field, true
}
