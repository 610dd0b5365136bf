package threat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordSingleCategory(t *testing.T) {
	r := AnalyzeKeywords("please transfer the money today")

	assert.InDelta(t, 0.20, r.Score, 1e-9)
	assert.Equal(t, []string{"financial_request"}, r.Categories)
	assert.Empty(t, r.Flags, "single category earns no bonus")
}

func TestKeywordMultiCategoryBonus(t *testing.T) {
	r := AnalyzeKeywords("you will be arrested unless you share the otp")

	// coercion 0.25 + verification 0.15, then 0.1 per category
	assert.InDelta(t, 0.60, r.Score, 1e-9)
	assert.Len(t, r.Categories, 2)
	assert.Contains(t, r.Flags, FlagMultipleCategories)
}

func TestKeywordScoreCapped(t *testing.T) {
	text := strings.Repeat("arrest jail penalty warrant police otp kyc verify urgent immediately deadline transfer the money deposit lottery prize winner anydesk teamviewer ", 3)
	r := AnalyzeKeywords(text)

	assert.Equal(t, 1.0, r.Score)
	assert.Contains(t, r.Flags, FlagMultipleCategories)
}

func TestKeywordCountsRepeatedHits(t *testing.T) {
	r := AnalyzeKeywords("urgent urgent urgent")

	// 3 urgency hits at 0.15 each, single category
	assert.InDelta(t, 0.45, r.Score, 1e-9)
	assert.Equal(t, 3, r.Matches["urgency"])
}

func TestKeywordBenign(t *testing.T) {
	r := AnalyzeKeywords("hello, your table for two is confirmed for eight pm")

	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.Categories)
}

func TestBehaviorTactics(t *testing.T) {
	r := AnalyzeBehavior("stay on the line and don't tell anyone about this call")

	// pressure + secrecy, one bonus each regardless of pattern count
	assert.InDelta(t, 0.30, r.Score, 1e-9)
	assert.Contains(t, r.Flags, "pressure_tactic")
	assert.Contains(t, r.Flags, "secrecy_tactic")
}

func TestBehaviorRepetition(t *testing.T) {
	// 12 words, 2 unique: scripted delivery
	r := AnalyzeBehavior("pay pay pay pay pay pay now now now now now now")

	assert.InDelta(t, 0.10, r.Score, 1e-9)
	assert.Contains(t, r.Flags, FlagRepetitiveSpeech)
}

func TestBehaviorShortTextNoRepetitionCheck(t *testing.T) {
	r := AnalyzeBehavior("yes yes yes")

	assert.Equal(t, 0.0, r.Score)
	assert.Empty(t, r.Flags)
}

func TestNormalizeFoldsUnicode(t *testing.T) {
	// Fullwidth and stylistic variants fold to plain lowercase ASCII
	assert.Equal(t, "urgent", Normalize("ＵＲＧＥＮＴ"))
	assert.Equal(t, "share the otp", Normalize("Share The OTP"))
}
