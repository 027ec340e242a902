package cpsolver

import (
	"context"
	"math"
	"testing"
	"time"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/nutrition"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/schedule"
)

func loadShippedData(t *testing.T) (*catalog.Catalog, nutrition.Registry, schedule.Config) {
	t.Helper()
	cat, err := catalog.LoadFile("../../../data/meals.json")
	if err != nil {
		t.Fatalf("catalog.LoadFile failed: %v", err)
	}
	reg, err := nutrition.LoadRegistryFile("../../../data/nutritional_profiles.json")
	if err != nil {
		t.Fatalf("nutrition.LoadRegistryFile failed: %v", err)
	}
	cfg, err := schedule.LoadFile("../../../data/config.json")
	if err != nil {
		t.Fatalf("schedule.LoadFile failed: %v", err)
	}
	return cat, reg, cfg
}

func solveShipped(t *testing.T, cat *catalog.Catalog, p nutrition.Profile, cfg schedule.Config, kind optimizer.ObjectiveKind) (*optimizer.Model, optimizer.Outcome) {
	t.Helper()
	m, err := optimizer.Build(cat, p, cfg, kind)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	out, err := optimizer.NewAdapter(New()).Solve(context.Background(), m, 0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	return m, out
}

func TestShippedProfilesSolveToOptimality(t *testing.T) {
	cat, reg, cfg := loadShippedData(t)

	cases := []struct {
		profile string
		kind    optimizer.ObjectiveKind
		want    float64
	}{
		{"healthy-adult", optimizer.MinimizeCost, 22.1},
		{"weight-loss", optimizer.MinimizeCost, 23.8},
		{"keto", optimizer.MinimizeCost, 34.8},
		{"high-protein", optimizer.MinimizeCost, 33.0},
		{"healthy-adult", optimizer.MaximizeRating, 54},
	}
	for _, tc := range cases {
		t.Run(tc.profile+"/"+string(tc.kind), func(t *testing.T) {
			p, err := reg.Resolve(tc.profile)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			m, out := solveShipped(t, cat, p, cfg, tc.kind)
			if out.Status != optimizer.StatusOptimal {
				t.Fatalf("Expected OPTIMAL, got %s (%s)", out.Status, out.Reason)
			}
			if got := m.Evaluate(out.Assignment); math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("Expected objective %v, got %v", tc.want, got)
			}
			if v := m.Check(out.Assignment); len(v) != 0 {
				t.Errorf("Assignment violates %v", v)
			}
		})
	}
}

func TestDefaultCustomRequirementsAreInfeasible(t *testing.T) {
	cat, _, cfg := loadShippedData(t)

	start := time.Now()
	_, out := solveShipped(t, cat, nutrition.Custom(nutrition.Requirements{}), cfg, optimizer.MinimizeCost)
	if out.Status != optimizer.StatusInfeasible {
		t.Fatalf("Expected INFEASIBLE, got %s", out.Status)
	}
	if out.Attempts > 1 {
		t.Errorf("Expected a verdict on the first attempt, took %d", out.Attempts)
	}
	if elapsed := time.Since(start); elapsed > optimizer.DefaultPrimary().TimeLimit {
		t.Errorf("Infeasibility took %v, longer than the time limit", elapsed)
	}
}
