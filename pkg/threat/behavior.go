package threat

import (
	"strings"

	"github.com/rakshakai/rakshak/pkg/patterns"
)

// FlagRepetitiveSpeech marks scripted delivery: scammers reading from a
// script repeat the same few words far more than natural speech does.
const FlagRepetitiveSpeech = "repetitive_speech"

const (
	tacticBonus     = 0.15
	repetitionBonus = 0.1

	// repetition heuristic: unique-word ratio below this over a long
	// enough utterance counts as scripted
	repetitionRatio    = 0.4
	repetitionMinWords = 10
)

// BehaviorResult is the output of the manipulation-tactics layer.
type BehaviorResult struct {
	Score float64  `json:"score"`
	Flags []string `json:"flags,omitempty"`
}

// AnalyzeBehavior scores psychological manipulation tactics in a normalized
// transcript. Each tactic category found adds a flat bonus; scripted
// repetition adds its own. Capped at 1.0.
func AnalyzeBehavior(normalized string) *BehaviorResult {
	reg := patterns.Get()
	result := &BehaviorResult{}

	for _, cat := range patterns.BehavioralCategories() {
		if reg.MatchAny(normalized, cat) == nil {
			continue
		}
		result.Score += tacticBonus
		result.Flags = append(result.Flags, string(cat)+"_tactic")
	}

	words := strings.Fields(normalized)
	if len(words) > repetitionMinWords {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) < repetitionRatio {
			result.Score += repetitionBonus
			result.Flags = append(result.Flags, FlagRepetitiveSpeech)
		}
	}

	if result.Score > 1 {
		result.Score = 1
	}
	return result
}
