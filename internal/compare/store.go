// Package compare persists tagged measurement runs as append-only JSON lines
// and produces cross-variant comparisons.
//
// Each configuration variant of the voice pipeline (e.g. "plugin" vs
// "inference" mode) records its measurement runs under a variant tag. The
// store never rewrites prior entries: one marshaled record plus newline per
// append, so a crash between records leaves everything already written
// loadable.
package compare

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
)

// Record is one tagged measurement run.
type Record struct {
	VariantTag string         `json:"variant_tag"`
	Timestamp  time.Time      `json:"timestamp"`
	Metrics    map[string]any `json:"metrics"`
}

// Store is a file-backed append-only record log. Appends are serialized so
// insertion order, the store's identity key, is preserved under concurrency.
type Store struct {
	mu           sync.Mutex
	path         string
	improvements []config.Improvement
}

// NewStore creates a store writing to path. improvements is the static
// expected-improvement reference table included in comparisons; it is
// configuration, never computed from the stored data.
func NewStore(path string, improvements []config.Improvement) *Store {
	return &Store{path: path, improvements: improvements}
}

// Append writes rec to the log. A zero timestamp is filled with the current
// time. Prior entries are never touched.
func (s *Store) Append(rec Record) error {
	if rec.VariantTag == "" {
		return fmt.Errorf("compare: record needs a variant tag")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("compare: marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("compare: open store: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("compare: write record: %w", err)
	}
	return nil
}

// List returns all records in insertion order. A missing store file is an
// empty store. A torn trailing line (crash mid-append) is skipped so that
// everything fully written stays loadable.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("compare: open store: %w", err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("compare: read store: %w", err)
	}
	return out, nil
}

// ListByTag returns all records under tag, in insertion order.
func (s *Store) ListByTag(tag string) ([]Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range all {
		if rec.VariantTag == tag {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Reset truncates the store. This is the only operation that removes records.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Truncate(s.path, 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("compare: reset store: %w", err)
	}
	return nil
}

// Comparison is the outcome of comparing two variant tags. When either tag
// has no records, Sufficient is false and MissingTags names the empty ones;
// that is a reported outcome, not an error.
type Comparison struct {
	TagA string `json:"tag_a"`
	TagB string `json:"tag_b"`

	Sufficient  bool     `json:"sufficient"`
	MissingTags []string `json:"missing_tags,omitempty"`

	CountA  int     `json:"count_a"`
	CountB  int     `json:"count_b"`
	LatestA *Record `json:"latest_a,omitempty"`
	LatestB *Record `json:"latest_b,omitempty"`

	// ExpectedImprovements is the injected reference table; it claims
	// nothing about the records above.
	ExpectedImprovements []config.Improvement `json:"expected_improvements"`
}

// Compare returns each tag's most recent record plus the expected-improvement
// table. Record order within a tag follows insertion order, so "most recent"
// is the last appended.
func (s *Store) Compare(tagA, tagB string) (*Comparison, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{
		TagA:                 tagA,
		TagB:                 tagB,
		ExpectedImprovements: s.improvements,
	}
	for i := range all {
		switch all[i].VariantTag {
		case tagA:
			cmp.CountA++
			cmp.LatestA = &all[i]
		case tagB:
			cmp.CountB++
			cmp.LatestB = &all[i]
		}
	}

	if cmp.CountA == 0 {
		cmp.MissingTags = append(cmp.MissingTags, tagA)
	}
	if cmp.CountB == 0 {
		cmp.MissingTags = append(cmp.MissingTags, tagB)
	}
	cmp.Sufficient = len(cmp.MissingTags) == 0
	return cmp, nil
}
