package optimizer

import (
	"fmt"
	"math"
)

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Op is a constraint relation.
type Op int

const (
	LE Op = iota // ≤
	GE           // ≥
	EQ           // =
)

func (o Op) String() string {
	switch o {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "=="
	}
	return "?"
}

// Var is a binary decision variable: meal Meal placed in global slot Slot.
type Var struct {
	Name string
	Meal int
	Slot int
}

// Term is Coeff × Vars[Var].
type Term struct {
	Var   int
	Coeff float64
}

// Constraint is Σ Terms Op RHS. Constraints sharing a non-empty Tag are
// built over the same linear expression.
type Constraint struct {
	Name  string
	Tag   string
	Terms []Term
	Op    Op
	RHS   float64
}

// Objective is a linear objective over all variables, Coeffs indexed by var.
type Objective struct {
	Sense  Sense
	Coeffs []float64
}

// Model is a backend-neutral binary integer program.
type Model struct {
	Vars        []Var
	Objective   Objective
	Constraints []Constraint

	// Meals and Slots are the dimensions of the assignment matrix.
	Meals int
	Slots int
}

// VarIndex returns the variable index of (meal, slot).
func (m *Model) VarIndex(meal, slot int) int { return meal*m.Slots + slot }

// Evaluate computes the objective value of an assignment.
func (m *Model) Evaluate(values []float64) float64 {
	var total float64
	for i, c := range m.Objective.Coeffs {
		if i < len(values) {
			total += c * values[i]
		}
	}
	return total
}

const feasibilityTol = 1e-6

// CoeffResolution is the precision to which backends must honor real
// coefficients. Check allows half of it per selected term.
const CoeffResolution = 1e-3

// Check returns the constraints violated by values, nil when it satisfies
// the model. Values are rounded to 0/1 first.
func (m *Model) Check(values []float64) []string {
	if len(values) != len(m.Vars) {
		return []string{fmt.Sprintf("assignment has %d values, model has %d variables", len(values), len(m.Vars))}
	}
	var violated []string
	for _, c := range m.Constraints {
		lhs, active := c.lhs(values)
		slack := CoeffResolution / 2 * float64(active)
		if !holdsWithin(lhs, c.Op, c.RHS, feasibilityTol+slack) {
			violated = append(violated, fmt.Sprintf("%s: %g %s %g", c.Name, lhs, c.Op, c.RHS))
		}
	}
	return violated
}

func (c Constraint) lhs(values []float64) (sum float64, active int) {
	for _, t := range c.Terms {
		if values[t.Var] > 0.5 {
			sum += t.Coeff
			active++
		}
	}
	return sum, active
}

// presolve reports the reason the model is trivially infeasible, or "".
// It catches empty constraints that cannot hold and tagged expressions whose
// lower bound exceeds their upper bound.
func (m *Model) presolve() string {
	type window struct{ lo, hi float64 }
	windows := make(map[string]*window)
	for _, c := range m.Constraints {
		if len(c.Terms) == 0 {
			if !holdsWithin(0, c.Op, c.RHS, feasibilityTol) {
				return fmt.Sprintf("%s: 0 %s %g cannot hold", c.Name, c.Op, c.RHS)
			}
			continue
		}
		if c.Tag == "" {
			continue
		}
		w, ok := windows[c.Tag]
		if !ok {
			w = &window{lo: math.Inf(-1), hi: math.Inf(1)}
			windows[c.Tag] = w
		}
		if c.Op == GE || c.Op == EQ {
			w.lo = math.Max(w.lo, c.RHS)
		}
		if c.Op == LE || c.Op == EQ {
			w.hi = math.Min(w.hi, c.RHS)
		}
		if w.lo > w.hi+feasibilityTol {
			return fmt.Sprintf("%s: lower bound %g exceeds upper bound %g", c.Tag, w.lo, w.hi)
		}
	}
	return ""
}

func holdsWithin(lhs float64, op Op, rhs, tol float64) bool {
	switch op {
	case LE:
		return lhs <= rhs+tol
	case GE:
		return lhs >= rhs-tol
	}
	return math.Abs(lhs-rhs) <= tol
}
