package optimizer

import (
	"sort"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/schedule"
)

// Selection is one meal placed in one slot.
type Selection struct {
	Day      string       `json:"day"`
	DayIndex int          `json:"day_index"`
	Slot     int          `json:"slot"`
	Meal     catalog.Meal `json:"meal"`
	Cost     float64      `json:"cost"`
}

// DayPlan lists the selections of a single day.
type DayPlan struct {
	Day   string      `json:"day"`
	Meals []Selection `json:"meals"`
}

// NutrientTotal is the aggregate of one nutrient over the plan.
type NutrientTotal struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// Solution is the weekly plan produced from a solver assignment.
type Solution struct {
	Status          Status                   `json:"status"`
	ProfileUsed     string                   `json:"profile_used"`
	SelectedMeals   []Selection              `json:"selected_meals"`
	Schedule        []DayPlan                `json:"meal_schedule"`
	NutrientSummary map[string]NutrientTotal `json:"nutritional_summary"`
	TotalCost       float64                  `json:"total_cost"`
	ObjectiveValue  *float64                 `json:"objective_value"`
	Message         string                   `json:"message,omitempty"`
}

// NumMeals returns the number of selections.
func (s *Solution) NumMeals() int { return len(s.SelectedMeals) }

// selectThreshold rounds relaxed binary values.
const selectThreshold = 0.5

// Extract maps an assignment over (meal, slot) back onto the schedule. The
// assignment must be laid out as meal*S + slot.
func Extract(assignment Assignment, cat *catalog.Catalog, cfg schedule.Config, profileName string, status Status) Solution {
	numSlots := cfg.TotalSlots()

	var selected []Selection
	for k, v := range assignment {
		if v <= selectThreshold {
			continue
		}
		i, j := k/numSlots, k%numSlots
		if i >= cat.Len() {
			continue
		}
		day, slot := cfg.SlotPosition(j)
		meal := cat.Meal(i)
		selected = append(selected, Selection{
			Day:      cfg.Days[day],
			DayIndex: day,
			Slot:     slot,
			Meal:     meal,
			Cost:     meal.Cost,
		})
	}
	sort.SliceStable(selected, func(a, b int) bool {
		if selected[a].DayIndex != selected[b].DayIndex {
			return selected[a].DayIndex < selected[b].DayIndex
		}
		return selected[a].Slot < selected[b].Slot
	})

	sol := Solution{
		Status:          status,
		ProfileUsed:     profileName,
		SelectedMeals:   selected,
		Schedule:        make([]DayPlan, len(cfg.Days)),
		NutrientSummary: summarize(selected),
	}
	for d, name := range cfg.Days {
		sol.Schedule[d] = DayPlan{Day: name, Meals: []Selection{}}
	}
	for _, s := range selected {
		sol.Schedule[s.DayIndex].Meals = append(sol.Schedule[s.DayIndex].Meals, s)
		sol.TotalCost += s.Cost
	}
	return sol
}

func summarize(selected []Selection) map[string]NutrientTotal {
	summary := make(map[string]NutrientTotal)
	if len(selected) == 0 {
		return summary
	}
	for _, n := range catalog.AllNutrients() {
		var total float64
		for _, s := range selected {
			total += s.Meal.Value(n)
		}
		summary[n.Key()] = NutrientTotal{Total: total, Average: total / float64(len(selected))}
	}
	return summary
}
