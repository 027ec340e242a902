package database

import (
	"path/filepath"
	"testing"
	"time"
)

func TestNewDBRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"meal_ratings", "meal_plans", "solve_metrics"} {
		var name string
		err := db.SQL.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("Expected table %s: %v", table, err)
		}
	}

	// Re-running against an up-to-date schema is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Errorf("Second migration run failed: %v", err)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.FixedZone("X", 3600))
	got, err := ParseTime(FormatTime(ts))
	if err != nil {
		t.Fatalf("ParseTime failed: %v", err)
	}
	if !got.Equal(ts) {
		t.Errorf("Expected %s, got %s", ts, got)
	}
}
