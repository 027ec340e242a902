package optimizer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"meal-optimizer/internal/shared"
)

// Status is the solver's verdict.
type Status string

const (
	StatusOptimal    Status = "OPTIMAL"
	StatusFeasible   Status = "FEASIBLE"
	StatusInfeasible Status = "INFEASIBLE"
	StatusUnknown    Status = "UNKNOWN"
)

// HasSolution reports whether the status carries an assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Heuristic selects the backend's search strategy.
type Heuristic string

const (
	HeuristicDefault Heuristic = "default"
	HeuristicImpact  Heuristic = "impact"
)

// Params configures one solver attempt.
type Params struct {
	TimeLimit time.Duration
	NodeLimit int
	Workers   int
	Heuristic Heuristic
}

// Result is the raw outcome of one attempt.
type Result struct {
	Status Status
	Values []float64
}

// Solver is a black-box binary program solver.
type Solver interface {
	Solve(ctx context.Context, m *Model, p Params) (Result, error)
}

// Assignment holds one 0/1 value per model variable.
type Assignment []float64

// DefaultPrimary is the first-attempt configuration.
func DefaultPrimary() Params {
	return Params{TimeLimit: 10 * time.Second, Workers: 1, Heuristic: HeuristicDefault}
}

// FallbackFor derives the retry configuration from p: twice the time,
// parallel workers and the impact heuristic.
func FallbackFor(p Params) Params {
	return Params{
		TimeLimit: 2 * p.TimeLimit,
		Workers:   4,
		Heuristic: HeuristicImpact,
	}
}

// Adapter runs a Solver under a bounded retry policy.
type Adapter struct {
	Solver   Solver
	Primary  Params
	Fallback *Params // nil derives it from the primary attempt
}

// NewAdapter returns an Adapter using the default primary configuration.
func NewAdapter(s Solver) *Adapter {
	return &Adapter{Solver: s, Primary: DefaultPrimary()}
}

// Outcome describes how a solve finished.
type Outcome struct {
	Status     Status
	Assignment Assignment
	Attempts   int
	Reason     string
}

// Solve runs the model. An UNKNOWN verdict is retried once with the fallback
// configuration; a second UNKNOWN becomes a SolverError. INFEASIBLE is a
// normal outcome. timeLimit overrides the primary time limit when positive.
func (a *Adapter) Solve(ctx context.Context, m *Model, timeLimit time.Duration) (Outcome, error) {
	if reason := m.presolve(); reason != "" {
		log.Printf("Model is infeasible before search: %s", reason)
		return Outcome{Status: StatusInfeasible, Reason: reason}, nil
	}

	primary := a.Primary
	if timeLimit > 0 {
		primary.TimeLimit = timeLimit
	}
	fallback := FallbackFor(primary)
	if a.Fallback != nil {
		fallback = *a.Fallback
	}

	attempts := []Params{primary, fallback}
	var res Result
	for n, p := range attempts {
		var err error
		res, err = a.Solver.Solve(ctx, m, p)
		if err != nil {
			return Outcome{}, &shared.SolverError{Attempts: n + 1, Status: string(StatusUnknown), Err: err}
		}
		if res.Status != StatusUnknown {
			return a.accept(m, res, n+1)
		}
		if n == 0 {
			log.Printf("Solution status: %s, retrying with fallback configuration (time limit %s, %d workers, %s heuristic)",
				res.Status, fallback.TimeLimit, fallback.Workers, fallback.Heuristic)
		}
	}
	return Outcome{}, &shared.SolverError{
		Attempts: len(attempts),
		Status:   string(StatusUnknown),
		Err:      fmt.Errorf("no definitive verdict: %w", contextErr(ctx)),
	}
}

func (a *Adapter) accept(m *Model, res Result, attempts int) (Outcome, error) {
	out := Outcome{Status: res.Status, Attempts: attempts}
	switch res.Status {
	case StatusInfeasible:
		return out, nil
	case StatusOptimal, StatusFeasible:
		if violated := m.Check(res.Values); len(violated) > 0 {
			return Outcome{}, &shared.SolverError{
				Attempts: attempts,
				Status:   string(res.Status),
				Err:      fmt.Errorf("assignment violates %s", strings.Join(violated, "; ")),
			}
		}
		out.Assignment = Assignment(res.Values)
		return out, nil
	}
	return Outcome{}, &shared.SolverError{Attempts: attempts, Status: string(res.Status), Err: fmt.Errorf("unrecognized status")}
}

func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("search limits exhausted")
}
