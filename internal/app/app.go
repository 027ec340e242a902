package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/config"
	"meal-optimizer/internal/database"
	"meal-optimizer/internal/metrics"
	"meal-optimizer/internal/nutrition"
	"meal-optimizer/internal/optimizer"
	"meal-optimizer/internal/optimizer/cpsolver"
	"meal-optimizer/internal/planner"
	"meal-optimizer/internal/ratings"
	"meal-optimizer/internal/schedule"
)

// App holds the application's dependencies.
type App struct {
	cfg *config.Config

	db           *database.DB
	catalogs     *catalog.Store
	ratingRepo   *ratings.Repository
	metricsStore *metrics.Store
	planRepo     *planner.PlanRepository
	mealPlanner  *planner.Planner

	// catalogMu orders writes of the meals file with snapshot swaps.
	catalogMu sync.Mutex
}

// New loads the catalog, profiles and schedule named by cfg, opens the
// database and wires the planner on top of them.
func New(cfg *config.Config) (*App, error) {
	cat, err := catalog.LoadFile(cfg.MealsFile)
	if err != nil {
		return nil, err
	}
	log.Printf("Loaded %d meals from %s", cat.Len(), cfg.MealsFile)

	registry, err := nutrition.LoadRegistryFile(cfg.ProfilesFile)
	if err != nil {
		return nil, err
	}

	sched := schedule.Default()
	if cfg.ScheduleFile != "" {
		if sched, err = schedule.LoadFile(cfg.ScheduleFile); err != nil {
			return nil, err
		}
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	adapter := optimizer.NewAdapter(cpsolver.New())
	adapter.Primary.TimeLimit = cfg.SolverTimeLimit

	a := &App{
		cfg:          cfg,
		db:           db,
		catalogs:     catalog.NewStore(cat),
		ratingRepo:   ratings.NewRepository(db.SQL),
		metricsStore: metrics.NewStore(db.SQL),
		planRepo:     planner.NewPlanRepository(db.SQL),
	}
	a.mealPlanner = planner.NewPlanner(a.catalogs, registry, sched, adapter, planner.Options{
		Ratings: a.ratingRepo,
		Metrics: a.metricsStore,
		Plans:   a.planRepo,
	})
	return a, nil
}

// Planner returns the wired meal planner.
func (a *App) Planner() *planner.Planner { return a.mealPlanner }

// Plans returns the plan history repository.
func (a *App) Plans() *planner.PlanRepository { return a.planRepo }

// Metrics returns the solve metrics store.
func (a *App) Metrics() *metrics.Store { return a.metricsStore }

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Catalog returns the current catalog snapshot.
func (a *App) Catalog() *catalog.Catalog { return a.catalogs.Snapshot() }

// ReloadCatalog re-reads the meals file. Solves already running keep the
// snapshot they started with.
func (a *App) ReloadCatalog() error {
	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()

	if err := a.catalogs.Reload(a.cfg.MealsFile); err != nil {
		return err
	}
	log.Printf("Reloaded %d meals from %s", a.catalogs.Snapshot().Len(), a.cfg.MealsFile)
	return nil
}

// ImportMeals validates a replacement meal catalog, writes it over the meals
// file and swaps it in. Nothing changes when validation fails.
func (a *App) ImportMeals(r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("failed to read meals: %w", err)
	}
	cat, err := catalog.Load(bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}

	a.catalogMu.Lock()
	defer a.catalogMu.Unlock()
	if err := writeFileAtomic(a.cfg.MealsFile, raw); err != nil {
		return 0, err
	}
	a.catalogs.Replace(cat)
	log.Printf("Imported %d meals into %s", cat.Len(), a.cfg.MealsFile)
	return cat.Len(), nil
}

// CleanupMetrics drops solve metrics older than the given number of days.
func (a *App) CleanupMetrics(ctx context.Context, olderThanDays int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, olderThanDays)
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
