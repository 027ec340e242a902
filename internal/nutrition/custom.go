package nutrition

import "meal-optimizer/internal/catalog"

// CustomProfileName names profiles built from caller requirements.
const CustomProfileName = "custom"

// Requirements carries caller-supplied per-meal bounds, keyed in JSON as
// min_<nutrient>/max_<nutrient>. Nil fields fall back to the defaults below.
type Requirements struct {
	MinCalories  *float64 `json:"min_calories,omitempty"`
	MaxCalories  *float64 `json:"max_calories,omitempty"`
	MinProtein   *float64 `json:"min_protein,omitempty"`
	MaxProtein   *float64 `json:"max_protein,omitempty"`
	MinCarbs     *float64 `json:"min_carbs,omitempty"`
	MaxCarbs     *float64 `json:"max_carbs,omitempty"`
	MinFat       *float64 `json:"min_fat,omitempty"`
	MaxFat       *float64 `json:"max_fat,omitempty"`
	MinVitaminA  *float64 `json:"min_vitamin_a,omitempty"`
	MaxVitaminA  *float64 `json:"max_vitamin_a,omitempty"`
	MinVitaminC  *float64 `json:"min_vitamin_c,omitempty"`
	MaxVitaminC  *float64 `json:"max_vitamin_c,omitempty"`
	MinVitaminD  *float64 `json:"min_vitamin_d,omitempty"`
	MaxVitaminD  *float64 `json:"max_vitamin_d,omitempty"`
	MinVitaminE  *float64 `json:"min_vitamin_e,omitempty"`
	MaxVitaminE  *float64 `json:"max_vitamin_e,omitempty"`
	MinCalcium   *float64 `json:"min_calcium,omitempty"`
	MaxCalcium   *float64 `json:"max_calcium,omitempty"`
	MinIron      *float64 `json:"min_iron,omitempty"`
	MaxIron      *float64 `json:"max_iron,omitempty"`
	MinMagnesium *float64 `json:"min_magnesium,omitempty"`
	MaxMagnesium *float64 `json:"max_magnesium,omitempty"`
	MinPotassium *float64 `json:"min_potassium,omitempty"`
	MaxPotassium *float64 `json:"max_potassium,omitempty"`
	MinSodium    *float64 `json:"min_sodium,omitempty"`
	MaxSodium    *float64 `json:"max_sodium,omitempty"`
}

var customDefaults = map[catalog.Nutrient]Bound{
	catalog.Calories:  {300, 700},
	catalog.Protein:   {20, 35},
	catalog.Carbs:     {30, 90},
	catalog.Fat:       {10, 25},
	catalog.VitaminA:  {150, 300},
	catalog.VitaminC:  {15, 30},
	catalog.VitaminD:  {3, 8},
	catalog.VitaminE:  {3, 6},
	catalog.Calcium:   {200, 400},
	catalog.Iron:      {2, 4},
	catalog.Magnesium: {60, 120},
	catalog.Potassium: {600, 1000},
	catalog.Sodium:    {200, 400},
}

// Custom builds a one-off profile for a single solve. It is never added to
// a Registry.
func Custom(req Requirements) Profile {
	pairs := map[catalog.Nutrient][2]*float64{
		catalog.Calories:  {req.MinCalories, req.MaxCalories},
		catalog.Protein:   {req.MinProtein, req.MaxProtein},
		catalog.Carbs:     {req.MinCarbs, req.MaxCarbs},
		catalog.Fat:       {req.MinFat, req.MaxFat},
		catalog.VitaminA:  {req.MinVitaminA, req.MaxVitaminA},
		catalog.VitaminC:  {req.MinVitaminC, req.MaxVitaminC},
		catalog.VitaminD:  {req.MinVitaminD, req.MaxVitaminD},
		catalog.VitaminE:  {req.MinVitaminE, req.MaxVitaminE},
		catalog.Calcium:   {req.MinCalcium, req.MaxCalcium},
		catalog.Iron:      {req.MinIron, req.MaxIron},
		catalog.Magnesium: {req.MinMagnesium, req.MaxMagnesium},
		catalog.Potassium: {req.MinPotassium, req.MaxPotassium},
		catalog.Sodium:    {req.MinSodium, req.MaxSodium},
	}

	p := Profile{Name: CustomProfileName, Bounds: make(map[catalog.Nutrient]Bound, len(customDefaults))}
	for n, def := range customDefaults {
		b := def
		if v := pairs[n][0]; v != nil {
			b.Min = *v
		}
		if v := pairs[n][1]; v != nil {
			b.Max = *v
		}
		p.Bounds[n] = b
	}
	return p
}
