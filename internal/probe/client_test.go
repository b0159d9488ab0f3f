package probe

import (
	"net/url"
	"testing"
)

func TestURLDefaults(t *testing.T) {
	c := NewClient("wss://api.deepgram.com/v1/listen", "test-key")

	rawURL, err := c.URL()
	if err != nil {
		t.Fatalf("URL: %v", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}
	q := u.Query()

	assertEqual(t, "model", "nova-2", q.Get("model"))
	assertEqual(t, "encoding", "linear16", q.Get("encoding"))
	assertEqual(t, "sample_rate", "16000", q.Get("sample_rate"))
}

func TestURLCustomParams(t *testing.T) {
	c := NewClient("wss://stt.example.com/v1/listen", "key")
	c.Model = "nova-3"
	c.Encoding = "mulaw"
	c.SampleRate = 8000

	rawURL, err := c.URL()
	if err != nil {
		t.Fatalf("URL: %v", err)
	}

	u, _ := url.Parse(rawURL)
	q := u.Query()

	assertEqual(t, "model", "nova-3", q.Get("model"))
	assertEqual(t, "encoding", "mulaw", q.Get("encoding"))
	assertEqual(t, "sample_rate", "8000", q.Get("sample_rate"))
	assertEqual(t, "host", "stt.example.com", u.Host)
}

func TestURLEmptyEndpoint(t *testing.T) {
	c := NewClient("", "key")
	if _, err := c.URL(); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantText string
		wantOK   bool
	}{
		{
			name:     "results with transcript",
			payload:  `{"type":"Results","channel":{"alternatives":[{"transcript":"hello world"}]}}`,
			wantText: "hello world",
			wantOK:   true,
		},
		{
			name:     "empty transcript is still a result",
			payload:  `{"type":"Results","channel":{"alternatives":[{"transcript":""}]}}`,
			wantText: "",
			wantOK:   true,
		},
		{
			name:    "non-results message ignored",
			payload: `{"type":"Metadata","request_id":"abc"}`,
			wantOK:  false,
		},
		{
			name:    "no alternatives ignored",
			payload: `{"type":"Results","channel":{"alternatives":[]}}`,
			wantOK:  false,
		},
		{
			name:    "malformed JSON ignored",
			payload: `{"type":"Results",`,
			wantOK:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, ok := parseResult([]byte(tc.payload))
			if ok != tc.wantOK {
				t.Fatalf("parseResult ok = %v, want %v", ok, tc.wantOK)
			}
			if text != tc.wantText {
				t.Fatalf("parseResult text = %q, want %q", text, tc.wantText)
			}
		})
	}
}

func assertEqual(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}
