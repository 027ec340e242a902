package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/metrics"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/planner"
	"meal-optimizer/internal/shared"

	"github.com/google/go-cmp/cmp"
)

func TestFormatPlanMarkdown(t *testing.T) {
	objective := 7.0
	oatmeal := catalog.Meal{Title: "Oatmeal", Cost: 2}
	rice := catalog.Meal{Title: "Chicken_Rice", Cost: 5}
	sol := &optimizer.Solution{
		Status:      optimizer.StatusOptimal,
		ProfileUsed: "healthy-adult",
		Schedule: []optimizer.DayPlan{
			{Day: "Monday", Meals: []optimizer.Selection{{Day: "Monday", Meal: oatmeal, Cost: 2}}},
			{Day: "Tuesday", Meals: []optimizer.Selection{{Day: "Tuesday", Meal: rice, Cost: 5}}},
			{Day: "Wednesday"},
		},
		NutrientSummary: map[string]optimizer.NutrientTotal{
			"calories": {Total: 900, Average: 450},
			"protein":  {Total: 50, Average: 25},
			"carbs":    {Total: 100, Average: 50},
			"fat":      {Total: 20, Average: 10},
		},
		TotalCost:      7,
		ObjectiveValue: &objective,
	}

	out := formatPlanMarkdown(sol)

	for _, want := range []string{
		"📅 *Weekly Meal Plan*",
		"*Monday*: Oatmeal ($2.00)",
		"*Tuesday*: Chicken\\_Rice ($5.00)",
		"*Wednesday*: -",
		"💰 *Total Cost:* $7.00",
		"🎯 *Objective:* 7.00",
		"• Calories: 450",
		"• Protein: 25.0g",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Missing %q in output:\n%s", want, out)
		}
	}
}

func TestFormatPlanMarkdownInfeasible(t *testing.T) {
	sol := &optimizer.Solution{
		Status:  optimizer.StatusInfeasible,
		Message: "No feasible solution found. Status: INFEASIBLE. Try relaxing constraints.",
	}
	out := formatPlanMarkdown(sol)
	if !strings.Contains(out, "🚫 *No plan found*") {
		t.Error("Missing infeasible header")
	}
	if strings.Contains(out, "Total Cost") {
		t.Error("Infeasible plan should not report a cost")
	}
}

func TestParsePlanArgs(t *testing.T) {
	cases := []struct {
		args    string
		want    planner.Request
		wantErr bool
	}{
		{args: "", want: planner.Request{}},
		{args: "athlete", want: planner.Request{ProfileName: "athlete"}},
		{args: "maximize_rating 2", want: planner.Request{Objective: "maximize_rating", MealFrequencyCap: 2}},
		{args: "3 minimize_cost healthy-adult", want: planner.Request{ProfileName: "healthy-adult", Objective: "minimize_cost", MealFrequencyCap: 3}},
		{args: "athlete vegan", wantErr: true},
		{args: "0", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.args, func(t *testing.T) {
			got, err := parsePlanArgs(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected an error for %q, got %+v", tc.args, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRateArgs(t *testing.T) {
	rating, title, err := parseRateArgs("8.5 Chicken Rice Bowl")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rating != 8.5 || title != "Chicken Rice Bowl" {
		t.Errorf("Got (%v, %q)", rating, title)
	}

	for _, args := range []string{"", "9", "great Oatmeal"} {
		if _, _, err := parseRateArgs(args); err == nil {
			t.Errorf("Expected an error for %q", args)
		}
	}
}

func TestFormatPlanError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{shared.NewModelError(shared.UnknownProfile, "keto"), "*Invalid request:*"},
		{shared.DataErrorf("meals", "record 2: missing title"), "*Bad meal data:*"},
		{&shared.SolverError{Attempts: 2, Status: "UNKNOWN"}, "gave up after 2 attempt(s)"},
		{errors.New("disk full"), "*Error generating plan:*"},
	}
	for _, tc := range cases {
		if got := formatPlanError(tc.err); !strings.Contains(got, tc.want) {
			t.Errorf("formatPlanError(%v) = %q, want it to contain %q", tc.err, got, tc.want)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if got := formatHistory(nil); !strings.Contains(got, "No plans yet") {
		t.Errorf("Unexpected empty history: %q", got)
	}

	plans := []planner.StoredPlan{{
		ID:        1,
		UserID:    "42",
		Profile:   "healthy-adult",
		Objective: "minimize_cost",
		Status:    optimizer.StatusOptimal,
		PlanData:  []byte(`{"status":"OPTIMAL","total_cost":12.5}`),
		CreatedAt: time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC),
	}}
	got := formatHistory(plans)
	if !strings.Contains(got, "2026-03-02 18:30 · healthy-adult · minimize\\_cost · $12.50") {
		t.Errorf("Unexpected history line:\n%s", got)
	}
}

func TestFormatMetrics(t *testing.T) {
	usage := []metrics.DailyUsage{{Date: "2026-03-02", Solves: 3, Optimal: 2, Infeasible: 1, AvgLatencyMS: 120}}
	health := metrics.SysHealth{AllocMB: 4, SysMB: 12, Goroutines: 9, DatabaseSize: "1.2 MB"}

	got := formatMetrics(usage, health)
	for _, want := range []string{
		"• *2026-03-02*: 3 solves (2 optimal, 1 infeasible, 0 failed), avg 120ms",
		"• RAM: 4MB (Alloc) / 12MB (Sys)",
		"• Database: 1.2 MB",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Missing %q in:\n%s", want, got)
		}
	}
}

func TestIsAllowed(t *testing.T) {
	allowed := []int64{12, 34}
	if !isAllowed(allowed, 34) {
		t.Error("Expected 34 to be allowed")
	}
	if isAllowed(allowed, 56) || isAllowed(nil, 12) {
		t.Error("Expected unknown users to be rejected")
	}
}
