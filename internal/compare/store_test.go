package compare

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ydjemai93/pam-backend-MARK-I/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.jsonl")
	return NewStore(path, config.Default().Improvements)
}

func rec(tag string, totalMs float64) Record {
	return Record{
		VariantTag: tag,
		Metrics:    map[string]any{"total_ms": totalMs},
	}
}

func TestAppendAndList_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	for i, r := range []Record{rec("A", 500), rec("B", 300), rec("A", 450)} {
		r.Timestamp = time.Date(2025, 10, 20, 12, i, 0, 0, time.UTC)
		if err := s.Append(r); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	all, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("want 3 records, got %d", len(all))
	}
	wantTags := []string{"A", "B", "A"}
	for i, r := range all {
		if r.VariantTag != wantTags[i] {
			t.Errorf("record %d: want tag %q, got %q", i, wantTags[i], r.VariantTag)
		}
	}
}

func TestListByTag(t *testing.T) {
	s := newTestStore(t)
	s.Append(rec("plugin", 600))
	s.Append(rec("inference", 250))
	s.Append(rec("plugin", 550))

	got, err := s.ListByTag("plugin")
	if err != nil {
		t.Fatalf("ListByTag: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 plugin records, got %d", len(got))
	}
	if got[0].Metrics["total_ms"].(float64) != 600 || got[1].Metrics["total_ms"].(float64) != 550 {
		t.Errorf("plugin records reordered: %+v", got)
	}
}

func TestCompare_LatestPerTag(t *testing.T) {
	s := newTestStore(t)
	s.Append(rec("A", 600))
	s.Append(rec("A", 500))
	s.Append(rec("B", 300))
	s.Append(rec("B", 280))

	cmp, err := s.Compare("A", "B")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if !cmp.Sufficient {
		t.Fatalf("want sufficient comparison, got missing tags %v", cmp.MissingTags)
	}
	if cmp.CountA != 2 || cmp.CountB != 2 {
		t.Errorf("counts: want 2/2, got %d/%d", cmp.CountA, cmp.CountB)
	}
	if cmp.LatestA.Metrics["total_ms"].(float64) != 500 {
		t.Errorf("latest A: want 500, got %v", cmp.LatestA.Metrics["total_ms"])
	}
	if cmp.LatestB.Metrics["total_ms"].(float64) != 280 {
		t.Errorf("latest B: want 280, got %v", cmp.LatestB.Metrics["total_ms"])
	}
	if len(cmp.ExpectedImprovements) != 4 {
		t.Errorf("expected-improvement table: want 4 rows, got %d", len(cmp.ExpectedImprovements))
	}

	// Comparison does not disturb the log.
	all, _ := s.List()
	if len(all) != 4 {
		t.Errorf("store mutated by Compare: %d records", len(all))
	}
}

func TestCompare_InsufficientDataIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	s.Append(rec("A", 500))

	cmp, err := s.Compare("A", "B")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp.Sufficient {
		t.Error("comparison with empty tag B must be insufficient")
	}
	if len(cmp.MissingTags) != 1 || cmp.MissingTags[0] != "B" {
		t.Errorf("missing tags: want [B], got %v", cmp.MissingTags)
	}
	if cmp.LatestA == nil {
		t.Error("existing tag's latest record should still be exposed")
	}
}

func TestList_MissingFileIsEmptyStore(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "never-written.jsonl"), nil)
	all, err := s.List()
	if err != nil {
		t.Fatalf("List on missing file: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("want empty store, got %d records", len(all))
	}
}

func TestList_TornTrailingLineSkipped(t *testing.T) {
	s := newTestStore(t)
	s.Append(rec("A", 500))

	// Simulate a crash mid-append: partial JSON at the tail.
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"variant_tag":"A","time`)
	f.Close()

	all, err := s.List()
	if err != nil {
		t.Fatalf("List with torn tail: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("want 1 loadable record, got %d", len(all))
	}
}

func TestAppend_RequiresTag(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(Record{}); err == nil {
		t.Error("expected error for untagged record")
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	s.Append(rec("A", 500))
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	all, _ := s.List()
	if len(all) != 0 {
		t.Errorf("records survived reset: %d", len(all))
	}
}

func TestAppend_ConcurrentSerialized(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(rec("A", 1))
		}()
	}
	wg.Wait()

	all, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 20 {
		t.Errorf("concurrent appends lost records: want 20, got %d", len(all))
	}
}
