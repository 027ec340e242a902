package cpsolver

import (
	"fmt"
	"math"
	"slices"

	mk "github.com/gitrdm/gokando/pkg/minikanren"

	"meal-optimizer/internal/optimizer"
)

// counts is the slot-symmetric form of a model. Each day row picks exactly
// one variable out of a block of slots that offers every meal, and every
// other row and the objective weigh a meal the same in all of its slots.
// Such a model only cares how often each meal is picked, so it is solved
// over one count per meal and expanded back to slots afterwards.
type counts struct {
	meals  int
	blocks [][]int
	rows   []*countWindow
	cost   []float64
	varAt  map[[2]int]int
	vars   int
}

// countWindow is lo ≤ Σ coeffs[i]·count[i] ≤ hi.
type countWindow struct {
	name   string
	coeffs []float64
	lo     float64
	hi     float64
}

// aggregate returns the count form of m, or nil when m is not slot-symmetric.
func aggregate(m *optimizer.Model) *counts {
	if m.Meals <= 0 || m.Slots <= 0 || len(m.Vars) != m.Meals*m.Slots || len(m.Objective.Coeffs) != len(m.Vars) {
		return nil
	}
	a := &counts{meals: m.Meals, varAt: make(map[[2]int]int, len(m.Vars)), vars: len(m.Vars)}
	for k, v := range m.Vars {
		if v.Meal < 0 || v.Meal >= m.Meals || v.Slot < 0 || v.Slot >= m.Slots {
			return nil
		}
		key := [2]int{v.Meal, v.Slot}
		if _, dup := a.varAt[key]; dup {
			return nil
		}
		a.varAt[key] = k
	}

	cost, ok := perMeal(m, objectiveTerms(m.Objective.Coeffs))
	if !ok {
		return nil
	}
	a.cost = cost

	covered := make([]bool, m.Slots)
	for _, w := range windows(m.Constraints) {
		if block, ok := dayBlock(m, w); ok {
			if a.hasBlock(block) {
				continue
			}
			for _, s := range block {
				if covered[s] {
					return nil
				}
				covered[s] = true
			}
			a.blocks = append(a.blocks, block)
			continue
		}
		coeffs, ok := perMeal(m, w.terms)
		if !ok {
			return nil
		}
		a.rows = append(a.rows, &countWindow{name: w.name, coeffs: coeffs, lo: w.lo, hi: w.hi})
	}
	if len(a.blocks) == 0 || slices.Contains(covered, false) {
		return nil
	}
	return a
}

func (a *counts) hasBlock(block []int) bool {
	for _, b := range a.blocks {
		if slices.Equal(b, block) {
			return true
		}
	}
	return false
}

// perMeal folds terms into one weight per meal. It fails unless each weight
// is nonnegative and applies to all of the meal's slots or none of them.
func perMeal(m *optimizer.Model, terms []optimizer.Term) ([]float64, bool) {
	byVar := make(map[int]float64, len(terms))
	for _, t := range terms {
		if t.Var < 0 || t.Var >= len(m.Vars) {
			return nil, false
		}
		byVar[t.Var] += t.Coeff
	}

	weight := make([]float64, m.Meals)
	seen := make([]int, m.Meals)
	for k, c := range byVar {
		if c == 0 {
			continue
		}
		if c < 0 {
			return nil, false
		}
		i := m.Vars[k].Meal
		if seen[i] > 0 && weight[i] != c {
			return nil, false
		}
		weight[i] = c
		seen[i]++
	}
	for _, n := range seen {
		if n != 0 && n != m.Slots {
			return nil, false
		}
	}
	return weight, true
}

// dayBlock returns the sorted slots of an exactly-one row that offers every
// meal in the same slots.
func dayBlock(m *optimizer.Model, w *window) ([]int, bool) {
	if w.lo != 1 || w.hi != 1 || len(w.terms) == 0 {
		return nil, false
	}
	slots := make([][]int, m.Meals)
	seen := make(map[int]bool, len(w.terms))
	for _, t := range w.terms {
		if t.Coeff != 1 || t.Var < 0 || t.Var >= len(m.Vars) || seen[t.Var] {
			return nil, false
		}
		seen[t.Var] = true
		v := m.Vars[t.Var]
		slots[v.Meal] = append(slots[v.Meal], v.Slot)
	}
	for _, s := range slots {
		slices.Sort(s)
	}
	for _, s := range slots[1:] {
		if !slices.Equal(slots[0], s) {
			return nil, false
		}
	}
	if len(slots[0]) == 0 {
		return nil, false
	}
	return slots[0], true
}

// translate encodes the count model. A count c is held as the domain value
// c+1, so Σ a·v = Σ a·c + Σ a.
func (a *counts) translate() (*translation, error) {
	days := len(a.blocks)
	lb := make([]int, a.meals)
	ub := make([]int, a.meals)
	for i := range ub {
		ub[i] = days
	}

	tr := &translation{}
	var rows []*countWindow
	for _, r := range a.rows {
		only, n := -1, 0
		for i, c := range r.coeffs {
			if c != 0 {
				only, n = i, n+1
			}
		}
		switch n {
		case 0:
			if r.lo > 1e-9 || r.hi < -1e-9 {
				tr.infeasible = true
				return tr, nil
			}
		case 1:
			// A row over one meal is a bound on its count.
			c := r.coeffs[only]
			if !math.IsInf(r.lo, -1) {
				lb[only] = max(lb[only], clampInt(math.Ceil(r.lo/c-1e-9), 0, days+1))
			}
			if !math.IsInf(r.hi, 1) {
				ub[only] = min(ub[only], clampInt(math.Floor(r.hi/c+1e-9), -1, days))
			}
		default:
			rows = append(rows, r)
		}
	}
	for i := range lb {
		if lb[i] > ub[i] {
			tr.infeasible = true
			return tr, nil
		}
	}

	model := mk.NewModel()
	vars := make([]*mk.FDVariable, a.meals)
	for i := range vars {
		vars[i] = model.NewVariableWithName(mk.NewBitSetDomainFromValues(days+1, rangeValues(lb[i]+1, ub[i]+1)), fmt.Sprintf("count_%d", i))
	}

	// One selection per day.
	ones := make([]int, a.meals)
	for i := range ones {
		ones[i] = 1
	}
	picked := &row{vars: vars, coeffs: ones, max: a.meals + days, allowed: []int{a.meals + days}}
	if _, err := post(model, picked, "days"); err != nil {
		return nil, err
	}

	for _, w := range rows {
		r, ok := countRow(vars, w.coeffs, ub, w.lo, w.hi)
		if !ok {
			tr.infeasible = true
			return tr, nil
		}
		if r == nil {
			continue
		}
		if _, err := post(model, r, w.name); err != nil {
			return nil, err
		}
	}

	if r, _ := countRow(vars, a.cost, ub, math.Inf(-1), math.Inf(1)); r != nil {
		var err error
		if tr.objective, err = post(model, r, "objective"); err != nil {
			return nil, err
		}
	}
	tr.solver = mk.NewSolver(model)
	tr.decode = func(sol []int) []float64 { return a.expand(vars, sol) }
	return tr, nil
}

// countRow encodes lo ≤ Σ coeffs·count ≤ hi. It returns ok=false when the
// window misses the reachable range, and a nil row when the window leaves
// every reachable sum allowed. Objective rows pass an unbounded window and
// always get a row unless every weight is zero.
func countRow(vars []*mk.FDVariable, coeffs []float64, ub []int, lo, hi float64) (*row, bool) {
	var (
		rv   []*mk.FDVariable
		rc   []float64
		most []int
	)
	for i, c := range coeffs {
		if c != 0 {
			rv = append(rv, vars[i])
			rc = append(rc, c)
			most = append(most, ub[i])
		}
	}
	f := scaleFor(rc)
	scaled, offset := scaleAll(rc, f)
	reach := 0
	for k, a := range scaled {
		reach += a * most[k]
	}

	if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
		if offset == 0 {
			return nil, true
		}
		return &row{vars: rv, coeffs: scaled, max: offset + reach}, true
	}

	l := 0
	if !math.IsInf(lo, -1) {
		l = clampInt(math.Ceil(lo*f-1e-9), 0, reach+1)
	}
	h := reach
	if !math.IsInf(hi, 1) {
		h = clampInt(math.Floor(hi*f+1e-9), -1, reach)
	}
	if l > h {
		return nil, false
	}
	if l == 0 && h == reach {
		return nil, true
	}
	return &row{vars: rv, coeffs: scaled, max: offset + reach, allowed: rangeValues(offset+l, offset+h)}, true
}

// expand places the k-th selection, taking meals in order, in the first slot
// of the k-th day.
func (a *counts) expand(vars []*mk.FDVariable, sol []int) []float64 {
	values := make([]float64, a.vars)
	day := 0
	for i, v := range vars {
		for n := sol[v.ID()] - 1; n > 0 && day < len(a.blocks); n-- {
			values[a.varAt[[2]int{i, a.blocks[day][0]}]] = 1
			day++
		}
	}
	return values
}

func clampInt(x float64, lo, hi int) int {
	if x < float64(lo) {
		return lo
	}
	if x > float64(hi) {
		return hi
	}
	return int(x)
}
