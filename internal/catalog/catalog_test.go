package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"meal-optimizer/internal/shared"
)

const sampleMeals = `[
  {
    "title": "Lentil Soup",
    "estimated_cost_usd": 3.5,
    "calories": 420,
    "macros": {"protein": 24, "carbs": 60, "fat": 8},
    "micros": {"iron_mg": 3.1, "vitamin_c_mg": 12},
    "user_rating": 7
  },
  {
    "title": "Salmon Bowl",
    "estimated_cost_usd": 9.25,
    "calories": 610,
    "macros": {"protein": 38, "carbs": 45, "fat": 22}
  }
]`

func TestLoad(t *testing.T) {
	cat, err := Load(strings.NewReader(sampleMeals))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Expected 2 meals, got %d", cat.Len())
	}

	soup := cat.Meal(0)
	if soup.Rating != 7 {
		t.Errorf("Expected rating 7, got %v", soup.Rating)
	}
	if got := soup.Value(Iron); got != 3.1 {
		t.Errorf("Expected iron 3.1, got %v", got)
	}
	if got := soup.Value(Protein); got != 24 {
		t.Errorf("Expected protein 24, got %v", got)
	}

	salmon, ok := cat.Lookup("Salmon Bowl")
	if !ok {
		t.Fatal("Expected to find Salmon Bowl")
	}
	if salmon.Rating != DefaultRating {
		t.Errorf("Expected default rating %v, got %v", DefaultRating, salmon.Rating)
	}
	// Missing micros read as zero.
	if got := salmon.Value(Zinc); got != 0 {
		t.Errorf("Expected missing zinc to be 0, got %v", got)
	}
}

func TestLoadRejectsInvalidRecords(t *testing.T) {
	cases := []struct {
		name string
		json string
	}{
		{"missing cost", `[{"title":"A","calories":1,"macros":{"protein":1,"carbs":1,"fat":1}}]`},
		{"missing macros", `[{"title":"A","estimated_cost_usd":1,"calories":1}]`},
		{"missing fat", `[{"title":"A","estimated_cost_usd":1,"calories":1,"macros":{"protein":1,"carbs":1}}]`},
		{"negative calories", `[{"title":"A","estimated_cost_usd":1,"calories":-5,"macros":{"protein":1,"carbs":1,"fat":1}}]`},
		{"unknown micro", `[{"title":"A","estimated_cost_usd":1,"calories":1,"macros":{"protein":1,"carbs":1,"fat":1},"micros":{"unobtainium_mg":1}}]`},
		{"macro key as micro", `[{"title":"A","estimated_cost_usd":1,"calories":1,"macros":{"protein":1,"carbs":1,"fat":1},"micros":{"protein":1}}]`},
		{"rating out of range", `[{"title":"A","estimated_cost_usd":1,"calories":1,"macros":{"protein":1,"carbs":1,"fat":1},"user_rating":11}]`},
		{"duplicate title", `[{"title":"A","estimated_cost_usd":1,"calories":1,"macros":{"protein":1,"carbs":1,"fat":1}},{"title":"A","estimated_cost_usd":2,"calories":1,"macros":{"protein":1,"carbs":1,"fat":1}}]`},
		{"not an array", `{"title":"A"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.json))
			var de *shared.DataError
			if !errors.As(err, &de) {
				t.Fatalf("Expected DataError, got %v", err)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meals.json")
	if err := os.WriteFile(path, []byte(sampleMeals), 0644); err != nil {
		t.Fatal(err)
	}
	cat, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cat.Len() != 2 {
		t.Errorf("Expected 2 meals, got %d", cat.Len())
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	var de *shared.DataError
	if !errors.As(err, &de) {
		t.Errorf("Expected DataError for missing file, got %v", err)
	}
}

func TestNutrientValue(t *testing.T) {
	cat, _ := Load(strings.NewReader(sampleMeals))
	soup := cat.Meal(0)

	v, err := cat.NutrientValue(soup, "vitamin_c_mg")
	if err != nil || v != 12 {
		t.Errorf("Expected 12, nil; got %v, %v", v, err)
	}

	_, err = cat.NutrientValue(soup, "fiber_g")
	if !shared.IsModelError(err, shared.UnknownNutrient) {
		t.Errorf("Expected UnknownNutrient, got %v", err)
	}
}

func TestWithRatingsLeavesOriginalUntouched(t *testing.T) {
	cat, _ := Load(strings.NewReader(sampleMeals))
	rated := cat.WithRatings(map[string]float64{"Salmon Bowl": 9, "Nope": 1})

	if got := rated.Meal(1).Rating; got != 9 {
		t.Errorf("Expected overridden rating 9, got %v", got)
	}
	if got := cat.Meal(1).Rating; got != DefaultRating {
		t.Errorf("Original catalog changed: rating %v", got)
	}
}

func TestMealJSONRoundTrip(t *testing.T) {
	cat, _ := Load(strings.NewReader(sampleMeals))
	data, err := cat.Meal(0).MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	again, err := Load(strings.NewReader("[" + string(data) + "]"))
	if err != nil {
		t.Fatalf("Reloading marshalled meal failed: %v", err)
	}
	if diff := cmp.Diff(cat.Meal(0), again.Meal(0)); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	first, _ := Load(strings.NewReader(sampleMeals))
	store := NewStore(first)

	snap := store.Snapshot()
	second, _ := New([]Meal{{Title: "Toast", Cost: 1, Calories: 200}})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Replace(second)
	}()
	wg.Wait()

	if snap.Len() != 2 {
		t.Errorf("Snapshot changed under replace: %d meals", snap.Len())
	}
	if store.Snapshot().Len() != 1 {
		t.Errorf("Expected refreshed snapshot with 1 meal, got %d", store.Snapshot().Len())
	}
}

func TestLookupNutrient(t *testing.T) {
	for _, n := range AllNutrients() {
		got, ok := LookupNutrient(n.Key())
		if !ok || got != n {
			t.Errorf("LookupNutrient(%q) = %v, %v", n.Key(), got, ok)
		}
	}
	if _, ok := LookupNutrient("vitamin_k_mcg"); ok {
		t.Error("Expected vitamin_k_mcg to be unknown")
	}
}
