package schedule

import (
	"encoding/json"
	"io"
	"os"

	"meal-optimizer/internal/shared"
)

// Config holds the structural parameters of a weekly plan.
type Config struct {
	Days              []string
	SlotsPerDay       int
	MaxRepeatsPerMeal int
}

// Default returns a Monday-to-Sunday week with one slot per day and each
// meal allowed twice.
func Default() Config {
	return Config{
		Days:              []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
		SlotsPerDay:       1,
		MaxRepeatsPerMeal: 2,
	}
}

type fileConfig struct {
	MealPlanning struct {
		DaysOfWeek  []string `json:"days_of_week"`
		MealsPerDay struct {
			Min int `json:"min"`
			Max int `json:"max"`
		} `json:"meals_per_day"`
		MaxRepeatsPerMeal int `json:"max_repeats_per_meal"`
	} `json:"meal_planning"`
}

// Load parses the meal_planning block of a config file. Missing values fall
// back to Default.
func Load(r io.Reader) (Config, error) {
	var fc fileConfig
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return Config{}, &shared.DataError{Source: "schedule", Msg: "failed to decode config", Err: err}
	}

	cfg := Default()
	mp := fc.MealPlanning
	if mp.DaysOfWeek != nil {
		cfg.Days = mp.DaysOfWeek
	}
	if mp.MealsPerDay.Max != 0 {
		cfg.SlotsPerDay = mp.MealsPerDay.Max
	}
	if mp.MaxRepeatsPerMeal != 0 {
		cfg.MaxRepeatsPerMeal = mp.MaxRepeatsPerMeal
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads a Config from a JSON file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, &shared.DataError{Source: "schedule", Msg: "failed to open " + path, Err: err}
	}
	defer f.Close()
	return Load(f)
}

// Validate checks the structural invariants of the configuration.
func (c Config) Validate() error {
	if len(c.Days) == 0 {
		return shared.DataErrorf("schedule", "at least one day is required")
	}
	seen := make(map[string]struct{}, len(c.Days))
	for _, d := range c.Days {
		if d == "" {
			return shared.DataErrorf("schedule", "day names must not be empty")
		}
		if _, dup := seen[d]; dup {
			return shared.DataErrorf("schedule", "duplicate day %q", d)
		}
		seen[d] = struct{}{}
	}
	if c.SlotsPerDay < 1 {
		return shared.DataErrorf("schedule", "slots per day must be at least 1, got %d", c.SlotsPerDay)
	}
	if c.MaxRepeatsPerMeal < 1 {
		return shared.DataErrorf("schedule", "max repeats per meal must be at least 1, got %d", c.MaxRepeatsPerMeal)
	}
	return nil
}

// WithMaxRepeats returns a copy of c with a different repetition cap.
func (c Config) WithMaxRepeats(n int) Config {
	out := c
	out.Days = append([]string(nil), c.Days...)
	out.MaxRepeatsPerMeal = n
	return out
}

// NumDays returns D.
func (c Config) NumDays() int { return len(c.Days) }

// TotalSlots returns S = D × SlotsPerDay.
func (c Config) TotalSlots() int { return len(c.Days) * c.SlotsPerDay }

// SlotPosition maps a global slot index onto its day index and in-day slot.
func (c Config) SlotPosition(j int) (day, slot int) {
	return j / c.SlotsPerDay, j % c.SlotsPerDay
}
