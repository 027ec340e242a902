// Package cpsolver solves optimizer models with the gokando finite-domain
// constraint solver.
package cpsolver

import (
	"context"
	"errors"
	"fmt"
	"math"

	mk "github.com/gitrdm/gokando/pkg/minikanren"

	"meal-optimizer/internal/optimizer"
)

// Binary variables use gokando's boolean encoding: 1 is false, 2 is true.
const (
	boolFalse = 1
	boolTrue  = 2
)

const maxScale = 1 / optimizer.CoeffResolution

// Solver implements optimizer.Solver.
type Solver struct {
	// Seed feeds the randomized heuristics of the fallback configuration.
	Seed int64
}

// New returns a Solver.
func New() *Solver {
	return &Solver{Seed: 42}
}

// Solve translates m into a finite-domain model and searches it under p.
func (s *Solver) Solve(ctx context.Context, m *optimizer.Model, p optimizer.Params) (optimizer.Result, error) {
	tr, err := translate(m)
	if err != nil {
		return optimizer.Result{}, err
	}
	if tr.infeasible {
		return optimizer.Result{Status: optimizer.StatusInfeasible}, nil
	}

	if tr.objective == nil {
		return s.satisfy(ctx, tr, p)
	}

	opts := []mk.OptimizeOption{mk.WithTimeLimit(p.TimeLimit)}
	if p.Workers > 1 {
		opts = append(opts, mk.WithParallelWorkers(p.Workers))
	}
	if p.NodeLimit > 0 {
		opts = append(opts, mk.WithNodeLimit(p.NodeLimit))
	}
	if p.Heuristic == optimizer.HeuristicImpact {
		opts = append(opts, mk.WithHeuristics(mk.HeuristicImpact, mk.ValueOrderObjImproving, s.Seed))
	}

	minimize := m.Objective.Sense == optimizer.Minimize
	sol, _, err := tr.solver.SolveOptimalWithOptions(ctx, tr.objective, minimize, opts...)
	switch {
	case err == nil && sol == nil:
		return optimizer.Result{Status: optimizer.StatusInfeasible}, nil
	case err == nil:
		return optimizer.Result{Status: optimizer.StatusOptimal, Values: tr.decode(sol)}, nil
	case isLimit(err):
		if sol == nil {
			return optimizer.Result{Status: optimizer.StatusUnknown}, nil
		}
		return optimizer.Result{Status: optimizer.StatusFeasible, Values: tr.decode(sol)}, nil
	}

	// Some failures only mean the root is inconsistent; a plain search tells
	// the two apart.
	sols, searchErr := tr.solver.Solve(ctx, 1)
	if searchErr == nil && len(sols) == 0 {
		return optimizer.Result{Status: optimizer.StatusInfeasible}, nil
	}
	return optimizer.Result{}, fmt.Errorf("optimal search failed: %w", err)
}

// satisfy handles models whose objective is identically zero: any feasible
// assignment is optimal.
func (s *Solver) satisfy(ctx context.Context, tr *translation, p optimizer.Params) (optimizer.Result, error) {
	if p.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeLimit)
		defer cancel()
	}
	sols, err := tr.solver.Solve(ctx, 1)
	if err != nil {
		if isLimit(err) {
			return optimizer.Result{Status: optimizer.StatusUnknown}, nil
		}
		return optimizer.Result{}, fmt.Errorf("feasibility search failed: %w", err)
	}
	if len(sols) == 0 {
		return optimizer.Result{Status: optimizer.StatusInfeasible}, nil
	}
	return optimizer.Result{Status: optimizer.StatusOptimal, Values: tr.decode(sols[0])}, nil
}

func isLimit(err error) bool {
	return errors.Is(err, mk.ErrSearchLimitReached) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

type translation struct {
	solver     *mk.Solver
	vars       []*mk.FDVariable
	objective  *mk.FDVariable
	infeasible bool

	// decode maps a solution back to one value per model variable.
	decode func(sol []int) []float64
}

func (tr *translation) decodeSlots(sol []int) []float64 {
	values := make([]float64, len(tr.vars))
	for k, v := range tr.vars {
		if sol[v.ID()] == boolTrue {
			values[k] = 1
		}
	}
	return values
}

// window is the allowed range of one linear expression.
type window struct {
	terms []optimizer.Term
	name  string
	lo    float64
	hi    float64
}

// translate prefers the count form, which has no symmetric duplicates of a
// plan, and falls back to one boolean per (meal, slot).
func translate(m *optimizer.Model) (*translation, error) {
	if a := aggregate(m); a != nil {
		return a.translate()
	}
	return translateSlots(m)
}

func translateSlots(m *optimizer.Model) (*translation, error) {
	model := mk.NewModel()
	tr := &translation{vars: make([]*mk.FDVariable, len(m.Vars))}
	tr.decode = tr.decodeSlots
	for k, v := range m.Vars {
		tr.vars[k] = model.NewVariableWithName(mk.NewBitSetDomainFromValues(boolTrue, []int{boolFalse, boolTrue}), v.Name)
	}

	for _, w := range windows(m.Constraints) {
		r, ok, err := tr.windowRow(w)
		if err != nil {
			return nil, err
		}
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

	r, err := tr.objectiveRow(m.Objective.Coeffs)
	if err != nil {
		return nil, err
	}
	if r != nil {
		if tr.objective, err = post(model, r, "objective"); err != nil {
			return nil, err
		}
	}
	tr.solver = mk.NewSolver(model)
	return tr, nil
}

// windows merges constraints sharing a tag into one range each, keeping
// first-seen order.
func windows(cs []optimizer.Constraint) []*window {
	var out []*window
	byTag := make(map[string]*window)
	for _, c := range cs {
		w := byTag[c.Tag]
		if c.Tag == "" || w == nil {
			w = &window{terms: c.Terms, name: c.Name, lo: math.Inf(-1), hi: math.Inf(1)}
			out = append(out, w)
			if c.Tag != "" {
				byTag[c.Tag] = w
			}
		}
		if c.Op == optimizer.GE || c.Op == optimizer.EQ {
			w.lo = math.Max(w.lo, c.RHS)
		}
		if c.Op == optimizer.LE || c.Op == optimizer.EQ {
			w.hi = math.Min(w.hi, c.RHS)
		}
	}
	return out
}

// post adds r to model and returns its total variable.
func post(model *mk.Model, r *row, name string) (*mk.FDVariable, error) {
	var total *mk.FDVariable
	if r.allowed == nil {
		total = model.NewVariableWithName(mk.NewBitSetDomain(r.max), name)
	} else {
		total = model.NewVariableWithName(mk.NewBitSetDomainFromValues(r.max, r.allowed), name)
	}
	if r.coeffs == nil {
		c, err := mk.NewBoolSum(r.vars, total)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		model.AddConstraint(c)
		return total, nil
	}
	c, err := mk.NewLinearSum(r.vars, r.coeffs, total)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	model.AddConstraint(c)
	return total, nil
}

// row is a sum ready to post: a BoolSum when coeffs is nil, a LinearSum
// otherwise. The total variable ranges over allowed, or 1..max when allowed
// is nil.
type row struct {
	vars    []*mk.FDVariable
	coeffs  []int
	max     int
	allowed []int
}

// windowRow encodes lo ≤ Σ terms ≤ hi. It returns ok=false when the window
// is empty over the reachable range and a nil row when it cannot bind.
func (tr *translation) windowRow(w *window) (*row, bool, error) {
	vars, coeffs, unit, err := tr.collect(w.terms)
	if err != nil {
		return nil, false, fmt.Errorf("constraint %s: %w", w.name, err)
	}

	if unit {
		n := len(vars)
		lo := max(0, int(math.Ceil(w.lo-1e-9)))
		hi := min(n, int(math.Floor(w.hi+1e-9)))
		if lo > hi {
			return nil, false, nil
		}
		if lo == 0 && hi == n {
			return nil, true, nil
		}
		// BoolSum counts are encoded as count+1.
		return &row{vars: vars, max: n + 1, allowed: rangeValues(lo+1, hi+1)}, true, nil
	}

	f := scaleFor(coeffs)
	scaled, total := scaleAll(coeffs, f)
	lo := 0
	if !math.IsInf(w.lo, -1) {
		lo = max(0, int(math.Ceil(w.lo*f-1e-9)))
	}
	hi := total
	if !math.IsInf(w.hi, 1) {
		hi = min(total, int(math.Floor(w.hi*f+1e-9)))
	}
	if lo > hi {
		return nil, false, nil
	}
	if lo == 0 && hi == total {
		return nil, true, nil
	}
	// Σ a·b over b ∈ {1,2} equals total + Σ a·x over x ∈ {0,1}.
	return &row{vars: vars, coeffs: scaled, max: 2 * total, allowed: rangeValues(total+lo, total+hi)}, true, nil
}

// objectiveRow returns nil when every coefficient is zero.
func (tr *translation) objectiveRow(coeffs []float64) (*row, error) {
	vars, cs, _, err := tr.collect(objectiveTerms(coeffs))
	if err != nil {
		return nil, fmt.Errorf("objective: %w", err)
	}
	scaled, total := scaleAll(cs, scaleFor(cs))
	if total == 0 {
		return nil, nil
	}
	return &row{vars: vars, coeffs: scaled, max: 2 * total}, nil
}

func objectiveTerms(coeffs []float64) []optimizer.Term {
	terms := make([]optimizer.Term, 0, len(coeffs))
	for k, c := range coeffs {
		terms = append(terms, optimizer.Term{Var: k, Coeff: c})
	}
	return terms
}

// collect drops zero terms and reports whether every coefficient is one.
func (tr *translation) collect(terms []optimizer.Term) ([]*mk.FDVariable, []float64, bool, error) {
	vars := make([]*mk.FDVariable, 0, len(terms))
	coeffs := make([]float64, 0, len(terms))
	unit := true
	for _, t := range terms {
		if t.Coeff == 0 {
			continue
		}
		if t.Coeff < 0 {
			return nil, nil, false, fmt.Errorf("negative coefficient %g on %d is not supported", t.Coeff, t.Var)
		}
		vars = append(vars, tr.vars[t.Var])
		coeffs = append(coeffs, t.Coeff)
		if t.Coeff != 1 {
			unit = false
		}
	}
	return vars, coeffs, unit, nil
}

// scaleFor returns the smallest power of ten up to maxScale that makes every
// coefficient integral.
func scaleFor(coeffs []float64) float64 {
	for f := 1.0; f < maxScale; f *= 10 {
		integral := true
		for _, c := range coeffs {
			if math.Abs(c*f-math.Round(c*f)) > 1e-9*f {
				integral = false
				break
			}
		}
		if integral {
			return f
		}
	}
	return maxScale
}

// scaleAll rounds coeffs×f to integers. Terms that round to zero keep a
// zero weight.
func scaleAll(coeffs []float64, f float64) ([]int, int) {
	out := make([]int, len(coeffs))
	total := 0
	for k, c := range coeffs {
		out[k] = int(math.Round(c * f))
		total += out[k]
	}
	return out, total
}

func rangeValues(lo, hi int) []int {
	values := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		values = append(values, v)
	}
	return values
}
