package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/audio"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/metrics"
	"github.com/ydjemai93/pam-backend-MARK-I/internal/timeline"
)

var (
	// ErrConnectionTimeout reports that the endpoint did not complete the
	// handshake within the connect budget.
	ErrConnectionTimeout = errors.New("probe: connection not established within budget")

	// ErrMissingInput reports that no audio input was provided.
	ErrMissingInput = errors.New("probe: no audio input")
)

const (
	defaultConnectBudget = 5 * time.Second
	defaultDrainWindow   = 2 * time.Second
)

// Prober runs measurement sessions against a transcription endpoint and
// records their events onto a Timeline.
type Prober struct {
	client *Client
	log    *slog.Logger

	// ConnectBudget bounds the wait for connection establishment.
	ConnectBudget time.Duration
	// DrainWindow is how long to wait for late results after the last chunk.
	DrainWindow time.Duration
}

// NewProber creates a prober with default connect budget and drain window.
func NewProber(c *Client, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{
		client:        c,
		log:           log,
		ConnectBudget: defaultConnectBudget,
		DrainWindow:   defaultDrainWindow,
	}
}

// Run executes one full probe session: dial, wait for establishment, stream
// the source at real-time pace, wait out the drain window, then close. The
// returned timeline is sealed and valid on every exit path, including
// errors; marks that never happened stay unset rather than zero.
func (p *Prober) Run(ctx context.Context, src audio.Source) (*timeline.Timeline, error) {
	tl := timeline.New()
	defer tl.Seal()

	if src == nil {
		metrics.ProbesTotal.WithLabelValues("no_input").Inc()
		return tl, ErrMissingInput
	}

	sessionID := uuid.NewString()
	log := p.log.With("session_id", sessionID)

	handlers := Handlers{
		OnOpen: func() {
			tl.MarkConnectionEstablished(time.Now())
		},
		OnResult: func(text string, at time.Time) {
			tl.AddResult(text, at)
			if text != "" {
				metrics.TranscriptsReceived.Inc()
				log.Info("transcript received", "text", text)
			}
		},
		OnError: func(err error) {
			log.Error("session error", "error", err)
		},
		OnClose: func() {
			log.Debug("session closed")
		},
	}

	tl.MarkConnectionStart(time.Now())

	dialCtx, cancelDial := context.WithCancel(ctx)
	defer cancelDial()
	dialCh := make(chan dialResult, 1)
	go func() {
		s, err := p.client.Dial(dialCtx, handlers)
		dialCh <- dialResult{s, err}
	}()

	sess, err := p.awaitEstablished(ctx, cancelDial, dialCh)
	if err != nil {
		return tl, err
	}
	defer sess.Close()

	log.Info("connection established")

	if err := p.stream(ctx, sess, src, tl); err != nil {
		metrics.ProbesTotal.WithLabelValues("transport_error").Inc()
		return tl, err
	}

	// Late results may still arrive; the read loop keeps marking the
	// timeline until the session closes.
	select {
	case <-ctx.Done():
		metrics.ProbesTotal.WithLabelValues("canceled").Inc()
		return tl, ctx.Err()
	case <-time.After(p.DrainWindow):
	}

	metrics.ProbesTotal.WithLabelValues("ok").Inc()
	return tl, nil
}

// awaitEstablished waits for dial completion within the connect budget. On
// timeout or cancellation the in-flight dial is abandoned: cancelled, and
// reaped so a session that completes late is closed rather than leaked.
func (p *Prober) awaitEstablished(ctx context.Context, cancelDial context.CancelFunc, dialCh <-chan dialResult) (*Session, error) {
	deadline := time.NewTimer(p.ConnectBudget)
	defer deadline.Stop()

	select {
	case <-ctx.Done():
		abandonDial(cancelDial, dialCh)
		metrics.ProbesTotal.WithLabelValues("canceled").Inc()
		return nil, ctx.Err()
	case out := <-dialCh:
		if out.err != nil {
			metrics.ProbesTotal.WithLabelValues("transport_error").Inc()
			return nil, out.err
		}
		return out.sess, nil
	case <-deadline.C:
		abandonDial(cancelDial, dialCh)
		metrics.ProbesTotal.WithLabelValues("timeout").Inc()
		return nil, ErrConnectionTimeout
	}
}

// abandonDial cancels an in-flight dial and drains its result. The dial
// goroutine always delivers exactly one result on the buffered channel, so
// the reaper terminates; any session that raced past the cancellation is
// closed here.
func abandonDial(cancel context.CancelFunc, dialCh <-chan dialResult) {
	cancel()
	go func() {
		if out := <-dialCh; out.sess != nil {
			out.sess.Close()
		}
	}()
}

type dialResult struct {
	sess *Session
	err  error
}

// stream sends the source's chunks at real-time pace. The first chunk marks
// FirstAudioSent; an empty source leaves the mark unset.
func (p *Prober) stream(ctx context.Context, sess *Session, src audio.Source, tl *timeline.Timeline) error {
	pace := src.ChunkDuration()
	first := true

	for {
		chunk, err := src.ReadChunk()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("probe: read audio: %w", err)
		}

		if first {
			tl.MarkFirstAudioSent(time.Now())
			first = false
		}
		if err := sess.Send(chunk); err != nil {
			return err
		}
		metrics.AudioChunksSent.Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pace):
		}
	}
}

// MeasureConnection runs a connect-only probe to measure the baseline
// network round trip: dial, record the open latency, close. No audio is
// streamed.
func (p *Prober) MeasureConnection(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.ConnectBudget)
	defer cancel()

	start := time.Now()
	sess, err := p.client.Dial(ctx, Handlers{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.ProbesTotal.WithLabelValues("timeout").Inc()
			return 0, ErrConnectionTimeout
		}
		metrics.ProbesTotal.WithLabelValues("transport_error").Inc()
		return 0, err
	}
	elapsed := time.Since(start)
	_ = sess.Close()

	metrics.ConnectionLatency.Observe(elapsed.Seconds())
	return elapsed, nil
}
