package threat

import (
	"github.com/rakshakai/rakshak/pkg/patterns"
)

// FlagMultipleCategories marks turns that hit two or more keyword categories.
// Legitimate calls rarely combine scam vocabularies.
const FlagMultipleCategories = "multiple_threat_categories"

// multiCategoryBonus is added per matched category when two or more
// categories fire in the same turn.
const multiCategoryBonus = 0.1

// KeywordResult is the output of the weighted keyword layer.
type KeywordResult struct {
	Score      float64        `json:"score"`
	Categories []string       `json:"categories,omitempty"`
	Matches    map[string]int `json:"matches,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
}

// AnalyzeKeywords scores a normalized transcript against the weighted scam
// vocabulary. Each category contributes weight x hit count; the sum is
// capped at 1.0 before and after the multi-category bonus.
func AnalyzeKeywords(normalized string) *KeywordResult {
	reg := patterns.Get()
	result := &KeywordResult{Matches: make(map[string]int)}

	for _, cat := range patterns.KeywordCategories() {
		count := reg.CountMatches(normalized, cat)
		if count == 0 {
			continue
		}
		result.Matches[string(cat)] = count
		result.Categories = append(result.Categories, string(cat))
		result.Score += reg.Weight(cat) * float64(count)
	}
	if result.Score > 1 {
		result.Score = 1
	}

	if len(result.Categories) >= 2 {
		result.Score += multiCategoryBonus * float64(len(result.Categories))
		result.Flags = append(result.Flags, FlagMultipleCategories)
		if result.Score > 1 {
			result.Score = 1
		}
	}

	return result
}
