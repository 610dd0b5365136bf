package patterns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultWeights provides the built-in category weights.
// These are the scores each keyword hit contributes, before capping.
func defaultWeights() map[Category]float64 {
	return map[Category]float64{
		CategoryUrgency:       0.15,
		CategoryFinancial:     0.20,
		CategoryImpersonation: 0.25,
		CategoryCoercion:      0.25,
		CategoryRemoteAccess:  0.20,
		CategoryVerification:  0.15,
		CategoryPrize:         0.20,
	}
}

// WeightOverrides is the YAML schema for tuning category weights in the field
// without a rebuild.
type WeightOverrides struct {
	// CategoryWeights maps category names to their per-hit scores (0.0 - 1.0)
	CategoryWeights map[string]float64 `yaml:"category_weights"`
}

// LoadWeightOverrides reads a YAML override file and applies it to the
// registry. Unknown category names are rejected so a typo cannot silently
// disable a category.
func (r *Registry) LoadWeightOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read weight overrides: %w", err)
	}

	var overrides WeightOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse weight overrides: %w", err)
	}

	known := defaultWeights()
	for name, w := range overrides.CategoryWeights {
		cat := Category(name)
		if _, ok := known[cat]; !ok {
			return fmt.Errorf("unknown category %q in %s", name, path)
		}
		if w < 0 || w > 1 {
			return fmt.Errorf("category %q: weight %.2f out of range [0, 1]", name, w)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, w := range overrides.CategoryWeights {
		r.weights[Category(name)] = w
	}
	return nil
}
