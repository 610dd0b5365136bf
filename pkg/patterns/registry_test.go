package patterns

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryInit(t *testing.T) {
	// Get should return a singleton registry
	r1 := Get()
	r2 := Get()

	if r1 != r2 {
		t.Error("Get() should return the same registry instance")
	}
}

func TestRegistryHasPatterns(t *testing.T) {
	r := Get()

	total := r.TotalPatterns()
	if total < 50 {
		t.Errorf("expected at least 50 patterns, got %d", total)
	}

	t.Logf("Registry loaded %d patterns", total)
}

func TestCategoryPatterns(t *testing.T) {
	r := Get()

	testCases := []struct {
		category    Category
		minPatterns int
	}{
		{CategoryUrgency, 8},
		{CategoryFinancial, 7},
		{CategoryImpersonation, 9},
		{CategoryCoercion, 6},
		{CategoryRemoteAccess, 5},
		{CategoryVerification, 6},
		{CategoryPrize, 6},
		{CategoryPressure, 4},
		{CategorySecrecy, 3},
		{CategoryIsolation, 3},
	}

	for _, tc := range testCases {
		t.Run(string(tc.category), func(t *testing.T) {
			patterns := r.GetByCategory(tc.category)
			if len(patterns) < tc.minPatterns {
				t.Errorf("category %s: expected at least %d patterns, got %d",
					tc.category, tc.minPatterns, len(patterns))
			}
		})
	}
}

func TestKeywordCategoryWeights(t *testing.T) {
	r := Get()

	for _, cat := range KeywordCategories() {
		if w := r.Weight(cat); w <= 0 || w > 1 {
			t.Errorf("category %s: weight %.2f out of range (0, 1]", cat, w)
		}
	}
}

func TestMatchAny(t *testing.T) {
	r := Get()

	testCases := []struct {
		name       string
		text       string
		categories []Category
		wantMatch  bool
	}{
		{
			name:       "arrest threat",
			text:       "you will be arrested within two hours",
			categories: []Category{CategoryCoercion},
			wantMatch:  true,
		},
		{
			name:       "police impersonation",
			text:       "I am calling from the cyber police station",
			categories: []Category{CategoryImpersonation},
			wantMatch:  true,
		},
		{
			name:       "anydesk request",
			text:       "please install any desk on your phone",
			categories: []Category{CategoryRemoteAccess},
			wantMatch:  true,
		},
		{
			name:       "otp request",
			text:       "share the OTP you just received",
			categories: []Category{CategoryVerification},
			wantMatch:  true,
		},
		{
			name:       "lottery lure",
			text:       "congratulations, you have won 25 lakh in our lucky draw",
			categories: []Category{CategoryPrize},
			wantMatch:  true,
		},
		{
			name:       "secrecy demand",
			text:       "keep this confidential, do not tell anyone",
			categories: []Category{CategorySecrecy},
			wantMatch:  true,
		},
		{
			name:       "benign chat",
			text:       "hello, how is the weather in Pune today",
			categories: []Category{CategoryCoercion, CategoryFinancial, CategoryPrize},
			wantMatch:  false,
		},
		{
			name:       "benign delivery call",
			text:       "your parcel will arrive tomorrow morning",
			categories: []Category{CategoryImpersonation, CategoryRemoteAccess},
			wantMatch:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			match := r.MatchAny(tc.text, tc.categories...)
			gotMatch := match != nil

			if gotMatch != tc.wantMatch {
				if tc.wantMatch {
					t.Errorf("expected match for %q, got none", tc.text)
				} else {
					t.Errorf("expected no match for %q, got %s", tc.text, match.Name)
				}
			}
		})
	}
}

func TestCountMatches(t *testing.T) {
	r := Get()

	text := "this is urgent, act now, the deadline expires immediately"
	count := r.CountMatches(text, CategoryUrgency)
	if count < 3 {
		t.Errorf("expected at least 3 urgency hits, got %d", count)
	}

	if got := r.CountMatches("nothing to see here", CategoryUrgency); got != 0 {
		t.Errorf("expected 0 urgency hits for benign text, got %d", got)
	}
}

func TestMatchAll(t *testing.T) {
	r := Get()

	text := "Sir this is urgent, the police have filed a case, transfer the money now"
	matches := r.MatchAll(text, CategoryUrgency, CategoryImpersonation, CategoryCoercion, CategoryFinancial)

	if len(matches) < 3 {
		t.Errorf("expected at least 3 matches across categories, got %d", len(matches))
	}
}

func TestLoadWeightOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	yaml := "category_weights:\n  urgency: 0.30\n  prize: 0.10\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	// Fresh registry so the singleton is not polluted for other tests
	r := newRegistry()
	if err := r.LoadWeightOverrides(path); err != nil {
		t.Fatalf("LoadWeightOverrides: %v", err)
	}

	if w := r.Weight(CategoryUrgency); w != 0.30 {
		t.Errorf("urgency weight = %.2f, want 0.30", w)
	}
	if w := r.Weight(CategoryPrize); w != 0.10 {
		t.Errorf("prize weight = %.2f, want 0.10", w)
	}
	// Untouched categories keep defaults
	if w := r.Weight(CategoryCoercion); w != 0.25 {
		t.Errorf("coercion weight = %.2f, want 0.25", w)
	}
}

func TestLoadWeightOverridesRejectsUnknownCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	if err := os.WriteFile(path, []byte("category_weights:\n  no_such_category: 0.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newRegistry()
	if err := r.LoadWeightOverrides(path); err == nil {
		t.Error("expected error for unknown category, got nil")
	}
}

func BenchmarkCountMatches(b *testing.B) {
	r := Get()
	text := "this is urgent sir, the police will arrest you, share the otp and transfer the money immediately"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, cat := range KeywordCategories() {
			_ = r.CountMatches(text, cat)
		}
	}
}
