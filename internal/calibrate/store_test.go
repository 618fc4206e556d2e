package calibrate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ppiankov/glyphgate/internal/audit"
)

func writeLog(t *testing.T, entries []audit.AuditEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gate.jsonl")
	l, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func entry(path string, weight float64, pass, unmeasured bool) audit.AuditEntry {
	d := audit.DecisionDeny
	if pass {
		d = audit.DecisionPass
	}
	return audit.AuditEntry{
		Timestamp:  "2025-01-15T14:00:00.000Z",
		Path:       path,
		FromTier:   1,
		ToTier:     2,
		Weight:     weight,
		Threshold:  0.5,
		Combiner:   "weighted",
		Decision:   d,
		Unmeasured: unmeasured,
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "calib.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample(t *testing.T) string {
	return writeLog(t, []audit.AuditEntry{
		entry("Sandboxed->Microkernel", 1, true, true),
		entry("Sandboxed->Microkernel", 0.9, true, false),
		entry("Sandboxed->Microkernel", 0.4, false, false),
		entry("Microkernel->Container", 0.8, true, false),
		entry("Microkernel->Container", 0.6, true, false),
		entry("Microkernel->Container", 0.2, false, false),
	})
}

func TestImportIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	logPath := sample(t)

	n, err := s.Import(ctx, logPath)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 6 {
		t.Fatalf("inserted %d, want 6", n)
	}
	n, err = s.Import(ctx, logPath)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if n != 0 {
		t.Fatalf("re-import inserted %d, want 0", n)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calib.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Import(context.Background(), sample(t)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	stats, err := s.PathStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats after reopen = %+v", stats)
	}
}

func TestPathStats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.Import(ctx, sample(t)); err != nil {
		t.Fatal(err)
	}

	got, err := s.PathStats(ctx)
	if err != nil {
		t.Fatalf("PathStats: %v", err)
	}
	want := []PathStat{
		{Path: "Microkernel->Container", Total: 3, Passed: 2, MeanWeight: 1.6 / 3, MinWeight: 0.2, MaxWeight: 0.8},
		{Path: "Sandboxed->Microkernel", Total: 3, Passed: 2, Unmeasured: 1, MeanWeight: 2.3 / 3, MinWeight: 0.4, MaxWeight: 1},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("path stats (-want +got):\n%s", diff)
	}
	if r := got[0].PassRate(); r < 0.66 || r > 0.67 {
		t.Errorf("pass rate = %v", r)
	}
}

func TestRecommend(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.Import(ctx, sample(t)); err != nil {
		t.Fatal(err)
	}

	// measured weights, descending: 0.9 0.8 0.6 0.4 0.2
	tests := []struct {
		target float64
		path   string
		want   float64
		rate   float64
	}{
		{1, "", 0.2, 1},
		{0.6, "", 0.6, 0.6},
		{0.5, "", 0.6, 0.6},
		{0.2, "", 0.9, 0.2},
		{0.5, "Sandboxed->Microkernel", 0.9, 0.5},
	}
	for _, tt := range tests {
		rec, err := s.Recommend(ctx, tt.target, tt.path)
		if err != nil {
			t.Fatalf("Recommend(%v, %q): %v", tt.target, tt.path, err)
		}
		if rec.Threshold != tt.want || rec.PassRate != tt.rate {
			t.Errorf("Recommend(%v, %q) = %+v, want threshold %v rate %v", tt.target, tt.path, rec, tt.want, tt.rate)
		}
		if rec.PassRate < tt.target {
			t.Errorf("Recommend(%v, %q) pass rate %v below target", tt.target, tt.path, rec.PassRate)
		}
	}
}

func TestRecommendErrors(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if _, err := s.Recommend(ctx, 0.5, ""); !errors.Is(err, ErrNoSamples) {
		t.Errorf("empty store err = %v", err)
	}
	for _, bad := range []float64{0, -0.1, 1.5} {
		if _, err := s.Recommend(ctx, bad, ""); err == nil {
			t.Errorf("target %v should be rejected", bad)
		}
	}
}

func TestImportMissingLog(t *testing.T) {
	s := openStore(t)
	if _, err := s.Import(context.Background(), filepath.Join(t.TempDir(), "none.jsonl")); err == nil {
		t.Fatal("expected error")
	}
}
