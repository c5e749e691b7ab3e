package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndToday(t *testing.T) {
	t.Setenv("COACH_JOURNAL_DIR", t.TempDir())

	entries := []Entry{
		{RunID: "run-1", Tradebook: "a.csv", Executions: 10, ClosedTrades: 4, WinRate: 50, TotalPnL: 1200},
		{RunID: "run-2", Tradebook: "b.csv", Executions: 6, ClosedTrades: 2, WinRate: 100, TotalPnL: 800},
	}
	for _, e := range entries {
		if err := Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := Today()
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].RunID != "run-1" || got[1].RunID != "run-2" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Time == "" {
		t.Fatal("Append must stamp the entry time")
	}
}

func TestTodayNoFile(t *testing.T) {
	t.Setenv("COACH_JOURNAL_DIR", t.TempDir())
	got, err := Today()
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("COACH_JOURNAL_DIR", dir)

	old := filepath.Join(dir, "2025-01-01.txt")
	if err := os.WriteFile(old, []byte(`{"run_id":"old"}`+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if err := Append(Entry{RunID: "fresh"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := CompressOlder(7); err != nil {
		t.Fatalf("CompressOlder: %v", err)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old journal should be replaced by gzip")
	}
	if _, err := os.Stat(old + ".gz"); err != nil {
		t.Fatalf("missing gzip: %v", err)
	}

	// Fresh file must survive untouched.
	fresh := dailyFilepath(time.Now())
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh journal compressed: %v", err)
	}
}
