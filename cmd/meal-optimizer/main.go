package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"meal-optimizer/internal/app"
	"meal-optimizer/internal/config"
	"meal-optimizer/internal/nutrition"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/planner"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	switch os.Args[1] {
	case "solve":
		err = runSolve(ctx, application, os.Args[2:])
	case "profiles":
		for _, name := range application.Planner().Profiles() {
			fmt.Println(name)
		}
	case "meals":
		err = runMeals(ctx, application)
	case "rate":
		rateCmd := flag.NewFlagSet("rate", flag.ExitOnError)
		title := rateCmd.String("title", "", "Meal title to rate")
		rating := rateCmd.Float64("rating", 0, "Rating between 1 and 10")
		rateCmd.Parse(os.Args[2:])

		if err = application.Planner().RateMeal(ctx, *title, *rating); err == nil {
			fmt.Printf("Rating for %q set to %g.\n", *title, *rating)
		}
	case "reset-ratings":
		var n int64
		if n, err = application.Planner().ResetRatings(ctx); err == nil {
			fmt.Printf("Reset %d meals to the default rating of 5.\n", n)
		}
	case "import":
		importCmd := flag.NewFlagSet("import", flag.ExitOnError)
		path := importCmd.String("file", "", "JSON file with the replacement meal catalog")
		importCmd.Parse(os.Args[2:])
		err = runImport(application, *path)
	case "history":
		historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
		user := historyCmd.String("user", "cli", "User whose plans to list")
		limit := historyCmd.Int("limit", 5, "Number of plans to list")
		historyCmd.Parse(os.Args[2:])
		err = runHistory(ctx, application, *user, *limit)
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		var affected int64
		if affected, err = application.CleanupMetrics(ctx, *days); err == nil {
			fmt.Printf("Successfully removed %d old metric records.\n", affected)
		}
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func runSolve(ctx context.Context, a *app.App, args []string) error {
	solveCmd := flag.NewFlagSet("solve", flag.ExitOnError)
	profile := solveCmd.String("profile", planner.DefaultProfileName, "Nutritional profile name")
	custom := solveCmd.String("custom", "", "JSON file with custom min_/max_ requirements (overrides -profile)")
	objective := solveCmd.String("objective", string(planner.DefaultObjective), "minimize_cost or maximize_rating")
	repeatCap := solveCmd.Int("cap", 0, "Maximum times a meal may appear (0 keeps the configured cap)")
	timeLimit := solveCmd.Duration("time-limit", 0, "Solver time limit for the first attempt")
	user := solveCmd.String("user", "cli", "User the plan is saved for")
	asJSON := solveCmd.Bool("json", false, "Print the solution as JSON")
	solveCmd.Parse(args)

	req := planner.Request{
		UserID:           *user,
		ProfileName:      *profile,
		Objective:        *objective,
		MealFrequencyCap: *repeatCap,
		TimeLimit:        *timeLimit,
	}
	if *custom != "" {
		p, err := loadCustomProfile(*custom)
		if err != nil {
			return err
		}
		req.Profile = &p
	}

	sol, err := a.Planner().GeneratePlan(ctx, req)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sol)
	}
	printSolution(sol)
	return nil
}

func loadCustomProfile(path string) (nutrition.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nutrition.Profile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var req nutrition.Requirements
	if err := json.Unmarshal(data, &req); err != nil {
		return nutrition.Profile{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nutrition.Custom(req), nil
}

func printSolution(sol *optimizer.Solution) {
	fmt.Printf("Status: %s (profile %s)\n", sol.Status, sol.ProfileUsed)
	if !sol.Status.HasSolution() {
		fmt.Println(sol.Message)
		return
	}

	fmt.Println("\n=== WEEKLY MEAL PLAN ===")
	for _, day := range sol.Schedule {
		titles := make([]string, len(day.Meals))
		for i, s := range day.Meals {
			titles[i] = fmt.Sprintf("%s ($%.2f)", s.Meal.Title, s.Cost)
		}
		fmt.Printf("%-10s: %s\n", day.Day, strings.Join(titles, ", "))
	}

	fmt.Printf("\nTotal cost: $%.2f\n", sol.TotalCost)
	if sol.ObjectiveValue != nil {
		fmt.Printf("Objective:  %.2f\n", *sol.ObjectiveValue)
	}

	fmt.Println("\n=== NUTRITION (daily average) ===")
	for _, key := range []string{"calories", "protein", "carbs", "fat"} {
		fmt.Printf("- %-9s %.1f\n", key+":", sol.NutrientSummary[key].Average)
	}
}

func runMeals(ctx context.Context, a *app.App) error {
	meals, err := a.Planner().MealsWithRatings(ctx)
	if err != nil {
		return err
	}
	for _, m := range meals {
		fmt.Printf("%-40s $%6.2f  %5.0f kcal  rating %.1f\n", m.Title, m.Cost, m.Calories, m.Rating)
	}
	return nil
}

func runImport(a *app.App, path string) error {
	if path == "" {
		return errors.New("-file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	n, err := a.ImportMeals(f)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d meals.\n", n)
	return nil
}

func runHistory(ctx context.Context, a *app.App, user string, limit int) error {
	plans, err := a.Plans().ListRecentByUserID(ctx, user, limit)
	if err != nil {
		return err
	}
	if len(plans) == 0 {
		fmt.Printf("No plans saved for %s.\n", user)
		return nil
	}
	for _, p := range plans {
		fmt.Printf("#%d  %s  %-16s %-16s %s\n", p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.Profile, p.Objective, p.Status)
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: meal-optimizer <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  solve              Build and solve a weekly plan (-profile, -custom, -objective, -cap, -time-limit, -json)")
	fmt.Println("  profiles           List nutritional profiles")
	fmt.Println("  meals              List catalog meals with their current ratings")
	fmt.Println("  rate               Rate a meal (-title, -rating)")
	fmt.Println("  reset-ratings      Reset every rating to the default")
	fmt.Println("  import             Replace the meal catalog (-file)")
	fmt.Println("  history            List recently saved plans (-user, -limit)")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days)")
}
