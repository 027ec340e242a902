package ratings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meal-optimizer/internal/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "ratings.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.SQL)
}

func TestSetAndAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if err := repo.Set(ctx, "Lentil Soup", 7); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Set(ctx, "Salmon Bowl", 3); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	// Overwrite.
	if err := repo.Set(ctx, "Lentil Soup", 9.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := repo.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	want := map[string]float64{"Lentil Soup": 9.5, "Salmon Bowl": 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Ratings mismatch (-want +got):\n%s", diff)
	}

	r, ok, err := repo.Get(ctx, "Salmon Bowl")
	if err != nil || !ok || r != 3 {
		t.Errorf("Get = %v, %v, %v", r, ok, err)
	}
	if _, ok, _ := repo.Get(ctx, "Toast"); ok {
		t.Error("Expected no rating for Toast")
	}
}

func TestSetRejectsOutOfRange(t *testing.T) {
	repo := newTestRepository(t)
	for _, r := range []float64{0, 0.99, 10.01, -3} {
		if err := repo.Set(context.Background(), "Toast", r); !errors.Is(err, ErrInvalidRating) {
			t.Errorf("Set(%v): expected ErrInvalidRating, got %v", r, err)
		}
	}
	if err := repo.Set(context.Background(), "", 5); err == nil {
		t.Error("Expected error for empty title")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	_ = repo.Set(ctx, "A", 2)
	_ = repo.Set(ctx, "Gone", 8)

	n, err := repo.Reset(ctx, []string{"A", "B"}, 5)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 meals reset, got %d", n)
	}
	all, _ := repo.All(ctx)
	if diff := cmp.Diff(map[string]float64{"A": 5, "B": 5}, all); diff != "" {
		t.Errorf("Ratings after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestResetRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	_ = repo.Set(ctx, "A", 2)

	if _, err := repo.Reset(ctx, []string{"A"}, 0); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("Expected ErrInvalidRating, got %v", err)
	}
	if got, _, _ := repo.Get(ctx, "A"); got != 2 {
		t.Errorf("Expected the stored rating to survive, got %v", got)
	}
}
