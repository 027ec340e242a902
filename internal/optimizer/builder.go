package optimizer

import (
	"fmt"
	"log"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/nutrition"
	"meal-optimizer/internal/schedule"
	"meal-optimizer/internal/shared"
)

// ObjectiveKind selects what the plan optimizes.
type ObjectiveKind string

const (
	MinimizeCost   ObjectiveKind = "minimize_cost"
	MaximizeRating ObjectiveKind = "maximize_rating"
)

// ParseObjective maps a wire name onto an ObjectiveKind.
func ParseObjective(name string) (ObjectiveKind, error) {
	switch k := ObjectiveKind(name); k {
	case MinimizeCost, MaximizeRating:
		return k, nil
	}
	return "", shared.NewModelError(shared.UnknownObjective, name)
}

// Build turns a catalog, profile and schedule into a binary program with one
// variable per (meal, slot) pair.
func Build(cat *catalog.Catalog, profile nutrition.Profile, cfg schedule.Config, objective ObjectiveKind) (*Model, error) {
	var coeff func(catalog.Meal) float64
	var sense Sense
	switch objective {
	case MinimizeCost:
		coeff, sense = func(m catalog.Meal) float64 { return m.Cost }, Minimize
	case MaximizeRating:
		coeff, sense = func(m catalog.Meal) float64 { return m.Rating }, Maximize
	default:
		return nil, shared.NewModelError(shared.UnknownObjective, string(objective))
	}

	if cat == nil || cat.Len() == 0 {
		return nil, shared.NewModelError(shared.EmptyCatalog, "no feasible assignment exists without meals")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	numMeals, numSlots, numDays := cat.Len(), cfg.TotalSlots(), cfg.NumDays()
	m := &Model{
		Vars:      make([]Var, 0, numMeals*numSlots),
		Objective: Objective{Sense: sense, Coeffs: make([]float64, 0, numMeals*numSlots)},
		Meals:     numMeals,
		Slots:     numSlots,
	}
	for i := 0; i < numMeals; i++ {
		c := coeff(cat.Meal(i))
		for j := 0; j < numSlots; j++ {
			m.Vars = append(m.Vars, Var{Name: fmt.Sprintf("x_%d_%d", i, j), Meal: i, Slot: j})
			m.Objective.Coeffs = append(m.Objective.Coeffs, c)
		}
	}
	log.Printf("Created %d decision variables (%d meals x %d slots)", len(m.Vars), numMeals, numSlots)

	// Each meal at most MaxRepeatsPerMeal times.
	for i := 0; i < numMeals; i++ {
		terms := make([]Term, 0, numSlots)
		for j := 0; j < numSlots; j++ {
			terms = append(terms, Term{Var: m.VarIndex(i, j), Coeff: 1})
		}
		m.Constraints = append(m.Constraints, Constraint{
			Name:  fmt.Sprintf("repeat_cap_%d", i),
			Terms: terms,
			Op:    LE,
			RHS:   float64(cfg.MaxRepeatsPerMeal),
		})
	}

	// Exactly one selection per day, over every meal and every slot of the day.
	for d := 0; d < numDays; d++ {
		terms := make([]Term, 0, numMeals*cfg.SlotsPerDay)
		for i := 0; i < numMeals; i++ {
			for s := 0; s < cfg.SlotsPerDay; s++ {
				terms = append(terms, Term{Var: m.VarIndex(i, d*cfg.SlotsPerDay+s), Coeff: 1})
			}
		}
		m.Constraints = append(m.Constraints, Constraint{
			Name:  fmt.Sprintf("one_per_day_%s", cfg.Days[d]),
			Tag:   fmt.Sprintf("day:%d", d),
			Terms: terms,
			Op:    EQ,
			RHS:   1,
		})
	}

	for _, n := range profile.Nutrients() {
		addNutrientBounds(m, cat, n, profile.Bounds[n], numDays)
	}

	// Redundant with the per-day rows; catches slot accounting mistakes.
	total := make([]Term, 0, len(m.Vars))
	for k := range m.Vars {
		total = append(total, Term{Var: k, Coeff: 1})
	}
	m.Constraints = append(m.Constraints, Constraint{
		Name:  "total_selections",
		Tag:   "total",
		Terms: total,
		Op:    EQ,
		RHS:   float64(numDays),
	})

	log.Printf("Added %d constraints", len(m.Constraints))
	return m, nil
}

// addNutrientBounds bounds Σ value(i)·x[i,j] by [min×D, max×D]. A zero min
// or an infinite max adds no row.
func addNutrientBounds(m *Model, cat *catalog.Catalog, n catalog.Nutrient, b nutrition.Bound, days int) {
	log.Printf("Setting constraints for %s: min=%g, max=%g", n.Key(), b.Min, b.Max)
	if !b.HasLower() && !b.HasUpper() {
		log.Printf("  %s is unconstrained", n.Key())
		return
	}

	var terms []Term
	for i := 0; i < m.Meals; i++ {
		v := cat.Meal(i).Value(n)
		if v == 0 {
			continue
		}
		for j := 0; j < m.Slots; j++ {
			terms = append(terms, Term{Var: m.VarIndex(i, j), Coeff: v})
		}
	}

	tag := "nutrient:" + n.Key()
	if b.HasLower() {
		rhs := b.Min * float64(days)
		m.Constraints = append(m.Constraints, Constraint{Name: n.Key() + "_min", Tag: tag, Terms: terms, Op: GE, RHS: rhs})
		log.Printf("  Lower bound constraint: sum >= %g (avg >= %g)", rhs, b.Min)
	} else {
		log.Printf("  Skipping lower bound constraint (min = 0)")
	}
	if b.HasUpper() {
		rhs := b.Max * float64(days)
		m.Constraints = append(m.Constraints, Constraint{Name: n.Key() + "_max", Tag: tag, Terms: terms, Op: LE, RHS: rhs})
		log.Printf("  Upper bound constraint: sum <= %g (avg <= %g)", rhs, b.Max)
	} else {
		log.Printf("  Skipping upper bound constraint (max = infinity)")
	}
}
