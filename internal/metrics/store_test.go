package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"meal-optimizer/internal/database"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.db")
	db, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL), path
}

func TestRecordAndDailyUsage(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	now := time.Now()
	records := []SolveMetric{
		{Profile: "balanced", Objective: "minimize_cost", Status: "OPTIMAL", Attempts: 1, Latency: 100 * time.Millisecond, Timestamp: now},
		{Profile: "balanced", Objective: "minimize_cost", Status: "INFEASIBLE", Attempts: 1, Latency: 300 * time.Millisecond, Timestamp: now},
		{Profile: "custom", Objective: "maximize_rating", Status: "UNKNOWN", Attempts: 2, Latency: 200 * time.Millisecond, Timestamp: now},
		{Profile: "old", Objective: "minimize_cost", Status: "OPTIMAL", Attempts: 1, Timestamp: now.AddDate(0, 0, -30)},
	}
	for _, m := range records {
		if err := store.Record(ctx, m); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	usage, err := store.GetDailyUsage(ctx, 7)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 {
		t.Fatalf("Expected 1 day of usage, got %d: %+v", len(usage), usage)
	}
	u := usage[0]
	if u.Solves != 3 || u.Optimal != 1 || u.Infeasible != 1 || u.Failed != 1 {
		t.Errorf("Unexpected counts: %+v", u)
	}
	if u.AvgLatencyMS != 200 || u.MaxAttempts != 2 {
		t.Errorf("Unexpected latency/attempts: %+v", u)
	}
	if u.Date != now.UTC().Format("2006-01-02") {
		t.Errorf("Unexpected date %q", u.Date)
	}
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_ = store.Record(ctx, SolveMetric{Status: "OPTIMAL", Timestamp: time.Now().AddDate(0, 0, -10)})
	_ = store.Record(ctx, SolveMetric{Status: "OPTIMAL"})

	n, err := store.Cleanup(ctx, 5)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 record removed, got %d", n)
	}
}

func TestGetSysHealth(t *testing.T) {
	_, path := newTestStore(t)
	h := GetSysHealth(path)
	if h.Goroutines < 1 {
		t.Errorf("Expected at least one goroutine, got %d", h.Goroutines)
	}
	if h.DatabaseSize == "0 B" {
		t.Errorf("Expected non-empty database size")
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		5 * 1024 * 1024: "5.0 MB",
	}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
