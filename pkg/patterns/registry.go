// Package patterns provides a centralized, high-performance pattern registry
// for scam-call detection. All regex patterns are compiled once at package init
// and shared across all scoring layers.
//
// Design principles:
// - COMPILE ONCE: All patterns compiled at init, not per-frame
// - DRY: Single source of truth for all scam vocabulary
// - CATEGORIZED: Patterns organized by threat category for weighted scoring
// - EXTENSIBLE: Weights can be overridden from a YAML file without code changes
package patterns

import (
	"regexp"
	"sync"
)

// Category represents a scam pattern category
type Category string

const (
	// Keyword categories (weighted threat vocabulary)
	CategoryUrgency       Category = "urgency"
	CategoryFinancial     Category = "financial_request"
	CategoryImpersonation Category = "authority_impersonation"
	CategoryCoercion      Category = "coercion"
	CategoryRemoteAccess  Category = "remote_access"
	CategoryVerification  Category = "identity_verification"
	CategoryPrize         Category = "prize"

	// Behavioral categories (manipulation tactics, flat bonus per hit)
	CategoryPressure  Category = "pressure"
	CategorySecrecy   Category = "secrecy"
	CategoryIsolation Category = "isolation"
)

// KeywordCategories returns the weighted categories in a stable order.
func KeywordCategories() []Category {
	return []Category{
		CategoryUrgency,
		CategoryFinancial,
		CategoryImpersonation,
		CategoryCoercion,
		CategoryRemoteAccess,
		CategoryVerification,
		CategoryPrize,
	}
}

// BehavioralCategories returns the manipulation-tactic categories.
func BehavioralCategories() []Category {
	return []Category{CategoryPressure, CategorySecrecy, CategoryIsolation}
}

// Pattern holds a compiled regex with metadata
type Pattern struct {
	Name        string         // Human-readable name for logging
	Regex       *regexp.Regexp // Compiled regex (never nil after init)
	Category    Category       // Threat category
	Description string         // What this pattern detects
}

// Registry holds all compiled patterns and category weights
type Registry struct {
	mu         sync.RWMutex
	byCategory map[Category][]*Pattern
	all        []*Pattern
	weights    map[Category]float64
}

// global singleton - initialized once at package load
var (
	globalRegistry *Registry
	initOnce       sync.Once
)

// Get returns the global pattern registry (singleton)
// Thread-safe and guaranteed to be initialized
func Get() *Registry {
	initOnce.Do(func() {
		globalRegistry = newRegistry()
	})
	return globalRegistry
}

// newRegistry creates and populates the pattern registry
func newRegistry() *Registry {
	r := &Registry{
		byCategory: make(map[Category][]*Pattern),
		all:        make([]*Pattern, 0, 128),
		weights:    defaultWeights(),
	}

	r.registerUrgencyPatterns()
	r.registerFinancialPatterns()
	r.registerImpersonationPatterns()
	r.registerCoercionPatterns()
	r.registerRemoteAccessPatterns()
	r.registerVerificationPatterns()
	r.registerPrizePatterns()
	r.registerPressurePatterns()
	r.registerSecrecyPatterns()
	r.registerIsolationPatterns()

	return r
}

// register adds a pattern to the registry (internal use only)
func (r *Registry) register(name string, pattern string, category Category, description string) {
	compiled := regexp.MustCompile(pattern)
	p := &Pattern{
		Name:        name,
		Regex:       compiled,
		Category:    category,
		Description: description,
	}

	r.byCategory[category] = append(r.byCategory[category], p)
	r.all = append(r.all, p)
}

// GetByCategory returns all patterns for a specific category
// Returns empty slice if category not found (never nil)
func (r *Registry) GetByCategory(cat Category) []*Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if patterns, ok := r.byCategory[cat]; ok {
		return patterns
	}
	return []*Pattern{}
}

// Weight returns the scoring weight for a keyword category.
func (r *Registry) Weight(cat Category) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights[cat]
}

// CountMatches returns the total number of pattern hits for a category.
// Every occurrence counts, not just the first.
func (r *Registry) CountMatches(text string, cat Category) int {
	count := 0
	for _, p := range r.GetByCategory(cat) {
		count += len(p.Regex.FindAllStringIndex(text, -1))
	}
	return count
}

// MatchAny checks if text matches any pattern in the given categories
// Returns the first matching pattern or nil
// This is optimized for early exit on first match
func (r *Registry) MatchAny(text string, cats ...Category) *Pattern {
	for _, cat := range cats {
		for _, p := range r.GetByCategory(cat) {
			if p.Regex.MatchString(text) {
				return p
			}
		}
	}
	return nil
}

// MatchAll returns all patterns that match the text in given categories
// Use when you need to know ALL matches (for comprehensive scoring)
func (r *Registry) MatchAll(text string, cats ...Category) []*Pattern {
	var matches []*Pattern
	for _, cat := range cats {
		for _, p := range r.GetByCategory(cat) {
			if p.Regex.MatchString(text) {
				matches = append(matches, p)
			}
		}
	}
	return matches
}

// TotalPatterns returns the total count of registered patterns
func (r *Registry) TotalPatterns() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// CategoryCount returns the number of patterns in a category
func (r *Registry) CategoryCount(cat Category) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCategory[cat])
}
