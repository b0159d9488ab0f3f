// Package probe drives live streaming sessions against a Deepgram-style
// transcription endpoint and records connection, send, and result events
// onto a timeline for latency decomposition.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultModel      = "nova-2"
	defaultEncoding   = "linear16"
	defaultSampleRate = 16000
)

// Handlers is the closed set of session event callbacks. All slots are
// registered before the read loop starts; nil slots are skipped.
type Handlers struct {
	OnOpen   func()
	OnResult func(text string, at time.Time)
	OnError  func(err error)
	OnClose  func()
}

// Client dials a Deepgram-style streaming transcription endpoint. Model,
// encoding, and sample rate are passed through as query parameters without
// interpretation.
type Client struct {
	Endpoint   string
	APIKey     string
	Model      string
	Encoding   string
	SampleRate int
	Dialer     *websocket.Dialer
}

// NewClient creates a client with default model, encoding, and sample rate.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint:   endpoint,
		APIKey:     apiKey,
		Model:      defaultModel,
		Encoding:   defaultEncoding,
		SampleRate: defaultSampleRate,
	}
}

// URL builds the streaming endpoint URL with model, encoding, and
// sample_rate query parameters.
func (c *Client) URL() (string, error) {
	if c.Endpoint == "" {
		return "", errors.New("probe: endpoint must not be empty")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", fmt.Errorf("probe: parse endpoint: %w", err)
	}

	q := u.Query()
	if c.Model != "" {
		q.Set("model", c.Model)
	}
	if c.Encoding != "" {
		q.Set("encoding", c.Encoding)
	}
	if c.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(c.SampleRate))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens a streaming session and starts its read loop. OnOpen fires
// before any other handler once the connection is established.
func (c *Client) Dial(ctx context.Context, h Handlers) (*Session, error) {
	wsURL, err := c.URL()
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	if c.APIKey != "" {
		headers.Set("Authorization", "Token "+c.APIKey)
	}

	d := c.Dialer
	if d == nil {
		d = websocket.DefaultDialer
	}
	conn, _, err := d.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("probe: dial %s: %w", wsURL, err)
	}

	s := &Session{
		conn:     conn,
		handlers: h,
		done:     make(chan struct{}),
	}
	if h.OnOpen != nil {
		h.OnOpen()
	}
	go s.readLoop()
	return s, nil
}

// Session is a live streaming session. Send and Close are safe for
// concurrent use; handlers run on the read loop goroutine.
type Session struct {
	conn     *websocket.Conn
	handlers Handlers

	writeMu sync.Mutex
	once    sync.Once
	done    chan struct{}
	closed  bool
}

// Send delivers one binary audio chunk to the endpoint.
func (s *Session) Send(chunk []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return errors.New("probe: session is closed")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("probe: send audio: %w", err)
	}
	return nil
}

// Close flushes pending audio with a CloseStream control message, performs
// the websocket close handshake, and waits for the read loop to exit.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.writeMu.Lock()
		s.closed = true
		_ = s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()

		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
		}
		s.conn.Close()
	})
	return nil
}

// readLoop receives JSON messages until the connection closes, delivering
// transcripts in receive order. OnClose fires exactly once on exit.
func (s *Session) readLoop() {
	defer close(s.done)
	if s.handlers.OnClose != nil {
		defer s.handlers.OnClose()
	}

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.handlers.OnError != nil && !isNormalClose(err) {
				s.handlers.OnError(err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		text, ok := parseResult(data)
		if !ok {
			continue
		}
		if s.handlers.OnResult != nil {
			s.handlers.OnResult(text, time.Now())
		}
	}
}

func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// resultMessage is the JSON shape of a Deepgram Results event.
type resultMessage struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseResult extracts the first alternative's transcript from a Results
// message. Non-Results messages and messages without alternatives are
// ignored.
func parseResult(data []byte) (string, bool) {
	var msg resultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", false
	}
	if msg.Type != "Results" {
		return "", false
	}
	if len(msg.Channel.Alternatives) == 0 {
		return "", false
	}
	return msg.Channel.Alternatives[0].Transcript, true
}
