// Package audio provides PCM audio sources for the streaming prober: WAV
// files and synthetic speech-like signals, both read as fixed-duration
// linear16 chunks at the source's native sample rate.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"
)

// DefaultChunkDuration is the per-chunk audio duration used when streaming at
// real-time pace, matching a live microphone feed.
const DefaultChunkDuration = 200 * time.Millisecond

// Source is a finite, restartable sequence of fixed-size PCM chunks.
// ReadChunk returns io.EOF once the source is exhausted; a subsequent Reset
// rewinds it to the beginning.
type Source interface {
	// SampleRate is the native sample rate in Hz.
	SampleRate() int

	// ChunkDuration is the real-time duration of one chunk.
	ChunkDuration() time.Duration

	// ReadChunk returns the next chunk of 16-bit little-endian mono PCM.
	// The final chunk may be shorter; after it, ReadChunk returns io.EOF.
	ReadChunk() ([]byte, error)

	// Reset rewinds the source to the beginning.
	Reset() error
}

// SyntheticSource generates a 440Hz tone with low-level noise, enough signal
// to exercise a transcription endpoint's VAD without a recorded sample.
type SyntheticSource struct {
	pcm        []byte
	sampleRate int
	chunkDur   time.Duration
	chunkBytes int
	pos        int
}

// NewSyntheticSource generates dur of synthetic audio at sampleRate, chunked
// into chunkDur pieces.
func NewSyntheticSource(dur time.Duration, sampleRate int, chunkDur time.Duration) *SyntheticSource {
	if chunkDur <= 0 {
		chunkDur = DefaultChunkDuration
	}
	numSamples := int(dur.Seconds() * float64(sampleRate))
	pcm := make([]byte, numSamples*2)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		sample := math.Sin(2*math.Pi*440*t)*0.3 + (rng.Float64()-0.5)*0.05
		val := int16(sample * math.MaxInt16)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(val))
	}

	return &SyntheticSource{
		pcm:        pcm,
		sampleRate: sampleRate,
		chunkDur:   chunkDur,
		chunkBytes: chunkSizeBytes(sampleRate, chunkDur),
	}
}

// SampleRate returns the native sample rate in Hz.
func (s *SyntheticSource) SampleRate() int { return s.sampleRate }

// ChunkDuration returns the real-time duration of one chunk.
func (s *SyntheticSource) ChunkDuration() time.Duration { return s.chunkDur }

// ReadChunk returns the next PCM chunk, or io.EOF when exhausted.
func (s *SyntheticSource) ReadChunk() ([]byte, error) {
	if s.pos >= len(s.pcm) {
		return nil, io.EOF
	}
	end := s.pos + s.chunkBytes
	if end > len(s.pcm) {
		end = len(s.pcm)
	}
	chunk := s.pcm[s.pos:end]
	s.pos = end
	return chunk, nil
}

// Reset rewinds to the first chunk.
func (s *SyntheticSource) Reset() error {
	s.pos = 0
	return nil
}

// chunkSizeBytes is the byte length of one chunk of 16-bit mono PCM.
func chunkSizeBytes(sampleRate int, chunkDur time.Duration) int {
	frames := int(float64(sampleRate) * chunkDur.Seconds())
	if frames < 1 {
		frames = 1
	}
	return frames * 2
}

// validateChunkParams guards the shared source constructor inputs.
func validateChunkParams(sampleRate int, chunkDur time.Duration) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audio: sample rate must be positive, got %d", sampleRate)
	}
	if chunkDur <= 0 {
		return fmt.Errorf("audio: chunk duration must be positive, got %v", chunkDur)
	}
	return nil
}
