package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"meal-optimizer/internal/shared"
)

// DefaultRating is applied to meals without a user rating.
const DefaultRating = 5.0

// Macros holds the macronutrient grams of a meal.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// Meal is one catalog entry. It is never mutated after loading.
type Meal struct {
	Title    string               `json:"title"`
	Cost     float64              `json:"estimated_cost_usd"`
	Calories float64              `json:"calories"`
	Macros   Macros               `json:"macros"`
	Micros   map[Nutrient]float64 `json:"-"`
	Rating   float64              `json:"user_rating"`
}

// Value returns the amount of n in the meal.
func (m Meal) Value(n Nutrient) float64 {
	switch n {
	case Calories:
		return m.Calories
	case Protein:
		return m.Macros.Protein
	case Carbs:
		return m.Macros.Carbs
	case Fat:
		return m.Macros.Fat
	}
	return m.Micros[n]
}

// MarshalJSON writes the meal back in record form, micros keyed by catalog key.
func (m Meal) MarshalJSON() ([]byte, error) {
	micros := make(map[string]float64, len(m.Micros))
	for n, v := range m.Micros {
		micros[n.Key()] = v
	}
	type alias Meal
	return json.Marshal(struct {
		alias
		Micros map[string]float64 `json:"micros"`
	}{alias(m), micros})
}

// UnmarshalJSON reads the form written by MarshalJSON. It does not validate;
// catalogs are loaded through Load.
func (m *Meal) UnmarshalJSON(data []byte) error {
	type alias Meal
	aux := struct {
		*alias
		Micros map[string]float64 `json:"micros"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Micros = make(map[Nutrient]float64, len(aux.Micros))
	for key, v := range aux.Micros {
		if n, ok := LookupNutrient(key); ok {
			m.Micros[n] = v
		}
	}
	return nil
}

// Catalog is an immutable, validated view of the meals available to a solve.
type Catalog struct {
	meals []Meal
	index map[string]int
}

// record mirrors the on-disk meal layout. Pointers detect missing fields.
type record struct {
	Title    string             `json:"title"`
	Cost     *float64           `json:"estimated_cost_usd"`
	Calories *float64           `json:"calories"`
	Macros   *recordMacros      `json:"macros"`
	Micros   map[string]float64 `json:"micros"`
	Rating   *float64           `json:"user_rating"`
}

type recordMacros struct {
	Protein *float64 `json:"protein"`
	Carbs   *float64 `json:"carbs"`
	Fat     *float64 `json:"fat"`
}

// Load decodes and validates a JSON array of meal records.
func Load(r io.Reader) (*Catalog, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, &shared.DataError{Source: "meals", Msg: "failed to decode meal records", Err: err}
	}

	meals := make([]Meal, 0, len(records))
	for i, rec := range records {
		meal, err := rec.toMeal()
		if err != nil {
			return nil, shared.DataErrorf("meals", "record %d (%q): %v", i, rec.Title, err)
		}
		meals = append(meals, meal)
	}
	return New(meals)
}

// LoadFile reads a catalog from a JSON file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &shared.DataError{Source: "meals", Msg: "failed to open " + path, Err: err}
	}
	defer f.Close()
	return Load(f)
}

// New builds a catalog from already decoded meals, enforcing unique titles.
// The slice is copied.
func New(meals []Meal) (*Catalog, error) {
	c := &Catalog{
		meals: make([]Meal, len(meals)),
		index: make(map[string]int, len(meals)),
	}
	for i, m := range meals {
		if m.Title == "" {
			return nil, shared.DataErrorf("meals", "meal %d has no title", i)
		}
		if _, dup := c.index[m.Title]; dup {
			return nil, shared.DataErrorf("meals", "duplicate meal title %q", m.Title)
		}
		if m.Rating == 0 {
			m.Rating = DefaultRating
		}
		m.Micros = copyMicros(m.Micros)
		c.meals[i] = m
		c.index[m.Title] = i
	}
	return c, nil
}

func (rec record) toMeal() (Meal, error) {
	if rec.Title == "" {
		return Meal{}, fmt.Errorf("missing title")
	}
	if rec.Macros == nil {
		return Meal{}, fmt.Errorf("missing macros")
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"estimated_cost_usd", rec.Cost},
		{"calories", rec.Calories},
		{"macros.protein", rec.Macros.Protein},
		{"macros.carbs", rec.Macros.Carbs},
		{"macros.fat", rec.Macros.Fat},
	} {
		if f.v == nil {
			return Meal{}, fmt.Errorf("missing %s", f.name)
		}
		if *f.v < 0 {
			return Meal{}, fmt.Errorf("%s must be non-negative, got %v", f.name, *f.v)
		}
	}

	micros := make(map[Nutrient]float64, len(rec.Micros))
	for key, v := range rec.Micros {
		n, ok := LookupNutrient(key)
		if !ok || !n.IsMicro() {
			return Meal{}, fmt.Errorf("unknown micronutrient %q", key)
		}
		if v < 0 {
			return Meal{}, fmt.Errorf("micros.%s must be non-negative, got %v", key, v)
		}
		micros[n] = v
	}

	rating := DefaultRating
	if rec.Rating != nil {
		if *rec.Rating < 1 || *rec.Rating > 10 {
			return Meal{}, fmt.Errorf("user_rating must be within [1,10], got %v", *rec.Rating)
		}
		rating = *rec.Rating
	}

	return Meal{
		Title:    rec.Title,
		Cost:     *rec.Cost,
		Calories: *rec.Calories,
		Macros: Macros{
			Protein: *rec.Macros.Protein,
			Carbs:   *rec.Macros.Carbs,
			Fat:     *rec.Macros.Fat,
		},
		Micros: micros,
		Rating: rating,
	}, nil
}

// Len returns the number of meals.
func (c *Catalog) Len() int { return len(c.meals) }

// Meal returns the i-th meal.
func (c *Catalog) Meal(i int) Meal { return c.meals[i] }

// Meals returns a copy of all meals in catalog order.
func (c *Catalog) Meals() []Meal {
	out := make([]Meal, len(c.meals))
	copy(out, c.meals)
	return out
}

// Lookup finds a meal by title.
func (c *Catalog) Lookup(title string) (Meal, bool) {
	i, ok := c.index[title]
	if !ok {
		return Meal{}, false
	}
	return c.meals[i], true
}

// NutrientValue returns the amount of the nutrient named by key in m.
func (c *Catalog) NutrientValue(m Meal, key string) (float64, error) {
	n, ok := LookupNutrient(key)
	if !ok {
		return 0, shared.NewModelError(shared.UnknownNutrient, key)
	}
	return m.Value(n), nil
}

// WithRatings returns a copy of the catalog whose meal ratings are replaced
// by the given title → rating overrides. Unknown titles are ignored.
func (c *Catalog) WithRatings(ratings map[string]float64) *Catalog {
	out := &Catalog{
		meals: make([]Meal, len(c.meals)),
		index: c.index,
	}
	copy(out.meals, c.meals)
	for title, r := range ratings {
		if i, ok := c.index[title]; ok {
			out.meals[i].Rating = r
		}
	}
	return out
}

func copyMicros(in map[Nutrient]float64) map[Nutrient]float64 {
	out := make(map[Nutrient]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Store holds the current catalog snapshot. Solves read a snapshot once and
// keep using it even if the store is refreshed meanwhile.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore returns a store seeded with c.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Snapshot returns the catalog current at the time of the call.
func (s *Store) Snapshot() *Catalog { return s.current.Load() }

// Replace swaps in a refreshed catalog.
func (s *Store) Replace(c *Catalog) { s.current.Store(c) }

// Reload reads path and replaces the snapshot on success.
func (s *Store) Reload(path string) error {
	c, err := LoadFile(path)
	if err != nil {
		return err
	}
	s.Replace(c)
	return nil
}
