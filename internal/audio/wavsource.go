package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// FileSource streams a WAV file as linear16 mono chunks. The file is decoded
// fully at construction, so the source is trivially restartable and holds no
// open file handle during streaming.
type FileSource struct {
	pcm        []byte
	sampleRate int
	chunkDur   time.Duration
	chunkBytes int
	pos        int
}

// NewFileSource opens and decodes the WAV file at path. Multi-channel files
// are reduced to their first channel. Only 16-bit PCM is accepted, matching
// the linear16 encoding the transcription endpoint expects.
func NewFileSource(path string, chunkDur time.Duration) (*FileSource, error) {
	if chunkDur <= 0 {
		chunkDur = DefaultChunkDuration
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("audio: %q is not a valid WAV file", path)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("audio: %q has %d-bit samples, need 16-bit linear PCM", path, d.BitDepth)
	}

	sampleRate := int(d.SampleRate)
	if err := validateChunkParams(sampleRate, chunkDur); err != nil {
		return nil, err
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels

	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		// First channel only.
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(buf.Data[i*channels])))
	}

	return &FileSource{
		pcm:        pcm,
		sampleRate: sampleRate,
		chunkDur:   chunkDur,
		chunkBytes: chunkSizeBytes(sampleRate, chunkDur),
	}, nil
}

// SampleRate returns the file's native sample rate in Hz.
func (s *FileSource) SampleRate() int { return s.sampleRate }

// ChunkDuration returns the real-time duration of one chunk.
func (s *FileSource) ChunkDuration() time.Duration { return s.chunkDur }

// ReadChunk returns the next PCM chunk, or io.EOF when exhausted.
func (s *FileSource) ReadChunk() ([]byte, error) {
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
func (s *FileSource) Reset() error {
	s.pos = 0
	return nil
}
