package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/metrics"
	"meal-optimizer/internal/nutrition"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/schedule"
	"meal-optimizer/internal/shared"
)

const (
	DefaultProfileName = "healthy-adult"
	DefaultObjective   = optimizer.MinimizeCost
)

// ErrMealNotFound is returned when rating a title the catalog does not hold.
var ErrMealNotFound = errors.New("meal not found")

// RatingStore persists user ratings.
type RatingStore interface {
	Set(ctx context.Context, title string, rating float64) error
	All(ctx context.Context) (map[string]float64, error)
	Reset(ctx context.Context, titles []string, rating float64) (int64, error)
}

// MetricsRecorder receives one metric per solve.
type MetricsRecorder interface {
	Record(ctx context.Context, m metrics.SolveMetric) error
}

// PlanStore keeps solved plans per user.
type PlanStore interface {
	Save(ctx context.Context, userID, objective string, sol *optimizer.Solution) (int64, error)
}

// Options carries the optional collaborators of a Planner.
type Options struct {
	Ratings RatingStore
	Metrics MetricsRecorder
	Plans   PlanStore
}

// Request describes one plan to generate.
type Request struct {
	UserID string

	// ProfileName selects a registered profile. Profile, when set, is an
	// ephemeral profile used for this request only and wins over the name.
	ProfileName string
	Profile     *nutrition.Profile

	Objective        string
	MealFrequencyCap int // 0 keeps the schedule's cap
	TimeLimit        time.Duration
}

// Planner handles the generation of meal plans.
type Planner struct {
	catalogs *catalog.Store
	profiles nutrition.Registry
	schedule schedule.Config
	adapter  *optimizer.Adapter
	opts     Options
}

// NewPlanner creates a new Planner instance.
func NewPlanner(catalogs *catalog.Store, profiles nutrition.Registry, cfg schedule.Config, adapter *optimizer.Adapter, opts Options) *Planner {
	return &Planner{
		catalogs: catalogs,
		profiles: profiles,
		schedule: cfg,
		adapter:  adapter,
		opts:     opts,
	}
}

// GeneratePlan builds and solves the program for req. Input problems are
// returned as DataError or ModelError before the solver runs; an infeasible
// program is a Solution with status INFEASIBLE, not an error.
func (p *Planner) GeneratePlan(ctx context.Context, req Request) (*optimizer.Solution, error) {
	start := time.Now()

	// 1. Snapshot the catalog and overlay persisted ratings
	cat := p.catalogs.Snapshot()
	if cat == nil {
		return nil, shared.NewModelError(shared.EmptyCatalog, "no catalog loaded")
	}
	if p.opts.Ratings != nil {
		ratings, err := p.opts.Ratings.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load ratings: %w", err)
		}
		cat = cat.WithRatings(ratings)
	}

	// 2. Resolve profile, objective and schedule
	profile, err := p.resolveProfile(req)
	if err != nil {
		return nil, err
	}
	objectiveName := req.Objective
	if objectiveName == "" {
		objectiveName = string(DefaultObjective)
	}
	objective, err := optimizer.ParseObjective(objectiveName)
	if err != nil {
		return nil, err
	}
	cfg := p.schedule
	if req.MealFrequencyCap != 0 {
		cfg = cfg.WithMaxRepeats(req.MealFrequencyCap)
	}

	// 3. Build the model
	log.Printf("Starting optimization with profile: %s, objective: %s", profile.Name, objective)
	model, err := optimizer.Build(cat, profile, cfg, objective)
	if err != nil {
		return nil, err
	}

	// 4. Solve
	outcome, err := p.adapter.Solve(ctx, model, req.TimeLimit)
	metric := metrics.SolveMetric{
		Profile:     profile.Name,
		Objective:   string(objective),
		Status:      string(outcome.Status),
		Attempts:    outcome.Attempts,
		Variables:   len(model.Vars),
		Constraints: len(model.Constraints),
	}
	if err != nil {
		var se *shared.SolverError
		if errors.As(err, &se) {
			metric.Status, metric.Attempts = se.Status, se.Attempts
		}
		metric.Latency = time.Since(start)
		p.record(ctx, metric)
		return nil, err
	}

	// 5. Extract
	sol := optimizer.Extract(outcome.Assignment, cat, cfg, profile.Name, outcome.Status)
	if outcome.Status.HasSolution() {
		v := model.Evaluate(outcome.Assignment)
		sol.ObjectiveValue = &v
		log.Printf("Optimization completed: %d meals, total cost $%.2f, objective %.2f", sol.NumMeals(), sol.TotalCost, v)
	} else {
		sol.Message = fmt.Sprintf("No feasible solution found. Status: %s. Try relaxing constraints.", outcome.Status)
		log.Printf("No solution found. Status: %s (%s)", outcome.Status, outcome.Reason)
	}

	metric.Latency = time.Since(start)
	p.record(ctx, metric)

	if p.opts.Plans != nil && req.UserID != "" && outcome.Status.HasSolution() {
		if _, err := p.opts.Plans.Save(ctx, req.UserID, string(objective), &sol); err != nil {
			log.Printf("Failed to save plan for user %s: %v", req.UserID, err)
		}
	}
	return &sol, nil
}

func (p *Planner) resolveProfile(req Request) (nutrition.Profile, error) {
	if req.Profile != nil {
		profile := req.Profile.Clone()
		if profile.Name == "" {
			profile.Name = nutrition.CustomProfileName
		}
		if err := profile.Validate(); err != nil {
			return nutrition.Profile{}, err
		}
		return profile, nil
	}
	name := req.ProfileName
	if name == "" {
		name = DefaultProfileName
	}
	return p.profiles.Resolve(name)
}

func (p *Planner) record(ctx context.Context, m metrics.SolveMetric) {
	if p.opts.Metrics == nil {
		return
	}
	if err := p.opts.Metrics.Record(ctx, m); err != nil {
		log.Printf("Failed to record solve metric: %v", err)
	}
}

// Profiles lists the registered profile names.
func (p *Planner) Profiles() []string {
	return p.profiles.Names()
}

// RateMeal stores a rating for a catalog meal.
func (p *Planner) RateMeal(ctx context.Context, title string, rating float64) error {
	if p.opts.Ratings == nil {
		return fmt.Errorf("ratings are not persisted in this deployment")
	}
	cat := p.catalogs.Snapshot()
	if cat == nil {
		return fmt.Errorf("%w: %s", ErrMealNotFound, title)
	}
	if _, ok := cat.Lookup(title); !ok {
		return fmt.Errorf("%w: %s", ErrMealNotFound, title)
	}
	return p.opts.Ratings.Set(ctx, title, rating)
}

// ResetRatings sets every catalog meal back to the default rating, returning
// how many meals were reset.
func (p *Planner) ResetRatings(ctx context.Context) (int64, error) {
	cat := p.catalogs.Snapshot()
	if p.opts.Ratings == nil || cat == nil {
		return 0, nil
	}
	meals := cat.Meals()
	titles := make([]string, len(meals))
	for i, m := range meals {
		titles[i] = m.Title
	}
	return p.opts.Ratings.Reset(ctx, titles, catalog.DefaultRating)
}

// MealsWithRatings returns the catalog meals with persisted ratings applied.
func (p *Planner) MealsWithRatings(ctx context.Context) ([]catalog.Meal, error) {
	cat := p.catalogs.Snapshot()
	if cat == nil {
		return nil, nil
	}
	if p.opts.Ratings != nil {
		ratings, err := p.opts.Ratings.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load ratings: %w", err)
		}
		cat = cat.WithRatings(ratings)
	}
	return cat.Meals(), nil
}
