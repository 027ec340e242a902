package catalog

// Nutrient identifies a tracked nutrient.
type Nutrient int

const (
	Calories Nutrient = iota
	Protein
	Carbs
	Fat
	VitaminA
	VitaminC
	VitaminD
	VitaminE
	Calcium
	Iron
	Magnesium
	Potassium
	Sodium
	Zinc
)

var nutrientKeys = [...]string{
	Calories:  "calories",
	Protein:   "protein",
	Carbs:     "carbs",
	Fat:       "fat",
	VitaminA:  "vitamin_a_mcg",
	VitaminC:  "vitamin_c_mg",
	VitaminD:  "vitamin_d_mcg",
	VitaminE:  "vitamin_e_mg",
	Calcium:   "calcium_mg",
	Iron:      "iron_mg",
	Magnesium: "magnesium_mg",
	Potassium: "potassium_mg",
	Sodium:    "sodium_mg",
	Zinc:      "zinc_mg",
}

// Key returns the catalog key used in meal records and summaries.
func (n Nutrient) Key() string {
	if n < 0 || int(n) >= len(nutrientKeys) {
		return "unknown"
	}
	return nutrientKeys[n]
}

func (n Nutrient) String() string { return n.Key() }

// IsMicro reports whether the nutrient lives in a record's micros block.
func (n Nutrient) IsMicro() bool {
	return n >= VitaminA && int(n) < len(nutrientKeys)
}

// AllNutrients returns every tracked nutrient in summary order.
func AllNutrients() []Nutrient {
	all := make([]Nutrient, len(nutrientKeys))
	for i := range all {
		all[i] = Nutrient(i)
	}
	return all
}

// LookupNutrient maps a catalog key to its nutrient.
func LookupNutrient(key string) (Nutrient, bool) {
	for i, k := range nutrientKeys {
		if k == key {
			return Nutrient(i), true
		}
	}
	return 0, false
}
