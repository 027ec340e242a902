package nutrition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"meal-optimizer/internal/catalog"
	"meal-optimizer/internal/shared"
)

// profileLabels maps the nutrient names used by profiles and callers onto
// catalog nutrients. Catalog keys are accepted as well, see ParseNutrient.
var profileLabels = map[string]catalog.Nutrient{
	"calories":  catalog.Calories,
	"protein":   catalog.Protein,
	"carbs":     catalog.Carbs,
	"fat":       catalog.Fat,
	"vitaminA":  catalog.VitaminA,
	"vitaminC":  catalog.VitaminC,
	"vitaminD":  catalog.VitaminD,
	"vitaminE":  catalog.VitaminE,
	"calcium":   catalog.Calcium,
	"iron":      catalog.Iron,
	"magnesium": catalog.Magnesium,
	"potassium": catalog.Potassium,
	"sodium":    catalog.Sodium,
	"zinc":      catalog.Zinc,
}

// ParseNutrient resolves a profile label ("vitaminA") or catalog key
// ("vitamin_a_mcg") to its nutrient.
func ParseNutrient(label string) (catalog.Nutrient, error) {
	if n, ok := profileLabels[label]; ok {
		return n, nil
	}
	if n, ok := catalog.LookupNutrient(label); ok {
		return n, nil
	}
	return 0, shared.NewModelError(shared.UnknownNutrient, label)
}

// Bound is an inclusive per-meal {min, max} pair. Max is +Inf when unbounded.
type Bound struct {
	Min float64
	Max float64
}

// HasLower reports whether the bound constrains from below.
func (b Bound) HasLower() bool { return b.Min > 0 }

// HasUpper reports whether the bound constrains from above.
func (b Bound) HasUpper() bool { return !math.IsInf(b.Max, 1) }

func (b *Bound) UnmarshalJSON(data []byte) error {
	var raw struct {
		Min *float64        `json:"min"`
		Max json.RawMessage `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Min != nil {
		b.Min = *raw.Min
	}

	max := bytes.TrimSpace(raw.Max)
	switch {
	case len(max) == 0 || string(max) == "null":
		b.Max = math.Inf(1)
	case max[0] == '"':
		var s string
		if err := json.Unmarshal(max, &s); err != nil {
			return err
		}
		switch strings.ToLower(s) {
		case "inf", "infinite", "infinity":
			b.Max = math.Inf(1)
		default:
			return fmt.Errorf("max must be a number or \"infinite\", got %q", s)
		}
	default:
		if err := json.Unmarshal(max, &b.Max); err != nil {
			return err
		}
	}
	return nil
}

func (b Bound) MarshalJSON() ([]byte, error) {
	if !b.HasUpper() {
		return json.Marshal(struct {
			Min float64 `json:"min"`
			Max string  `json:"max"`
		}{b.Min, "infinite"})
	}
	return json.Marshal(struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}{b.Min, b.Max})
}

// Profile is a named set of per-nutrient bounds.
type Profile struct {
	Name   string
	Bounds map[catalog.Nutrient]Bound
}

// Nutrients returns the bounded nutrients in catalog order.
func (p Profile) Nutrients() []catalog.Nutrient {
	out := make([]catalog.Nutrient, 0, len(p.Bounds))
	for _, n := range catalog.AllNutrients() {
		if _, ok := p.Bounds[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := Profile{Name: p.Name, Bounds: make(map[catalog.Nutrient]Bound, len(p.Bounds))}
	for n, b := range p.Bounds {
		out.Bounds[n] = b
	}
	return out
}

// Validate rejects negative or NaN bounds.
func (p Profile) Validate() error {
	for _, n := range p.Nutrients() {
		b := p.Bounds[n]
		if b.Min < 0 || b.Max < 0 || math.IsNaN(b.Min) || math.IsNaN(b.Max) {
			return shared.DataErrorf("profiles", "profile %q: %s bounds must be non-negative", p.Name, n.Key())
		}
	}
	return nil
}

// Registry is a read-only set of named profiles.
type Registry struct {
	profiles map[string]Profile
}

// LoadRegistry parses {"<profile>": {"<nutrient>": {"min": n, "max": n}}}.
// Unknown nutrient names fail immediately.
func LoadRegistry(r io.Reader) (Registry, error) {
	var raw map[string]map[string]Bound
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Registry{}, &shared.DataError{Source: "profiles", Msg: "failed to decode nutritional profiles", Err: err}
	}

	reg := Registry{profiles: make(map[string]Profile, len(raw))}
	for name, bounds := range raw {
		p := Profile{Name: name, Bounds: make(map[catalog.Nutrient]Bound, len(bounds))}
		labels := make(map[catalog.Nutrient]string, len(bounds))
		for label, b := range bounds {
			n, err := ParseNutrient(label)
			if err != nil {
				return Registry{}, fmt.Errorf("profile %q: %w", name, err)
			}
			if prev, dup := labels[n]; dup {
				return Registry{}, shared.DataErrorf("profiles", "profile %q: %q and %q both bound %s", name, prev, label, n.Key())
			}
			labels[n] = label
			p.Bounds[n] = b
		}
		if err := p.Validate(); err != nil {
			return Registry{}, err
		}
		reg.profiles[name] = p
	}
	return reg, nil
}

// LoadRegistryFile reads a registry from a JSON file.
func LoadRegistryFile(path string) (Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return Registry{}, &shared.DataError{Source: "profiles", Msg: "failed to open " + path, Err: err}
	}
	defer f.Close()
	return LoadRegistry(f)
}

// NewRegistry builds a registry from profiles, keyed by their names.
func NewRegistry(profiles ...Profile) Registry {
	reg := Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		reg.profiles[p.Name] = p.Clone()
	}
	return reg
}

// Resolve returns a private copy of the named profile.
func (r Registry) Resolve(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, shared.NewModelError(shared.UnknownProfile, name)
	}
	return p.Clone(), nil
}

// Names lists the registered profiles alphabetically.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
