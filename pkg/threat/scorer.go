// Package threat fuses the per-turn detection layers into a single threat
// assessment. Layers are optional and weighted; a missing layer redistributes
// its weight across the layers that did run.
package threat

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Level is the threat tier for a turn.
type Level string

const (
	LevelSafe     Level = "safe"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelRank = map[Level]int{
	LevelSafe:     0,
	LevelLow:      1,
	LevelMedium:   2,
	LevelHigh:     3,
	LevelCritical: 4,
}

func levelAtLeast(l, min Level) bool {
	return levelRank[l] >= levelRank[min]
}

// Action is the recommended response for a turn.
type Action string

const (
	ActionContinueMonitoring Action = "continue_monitoring"
	ActionAlertUser          Action = "alert_user"
	ActionHandoffToDecoy     Action = "handoff_to_decoy"
)

// Layer names reported in assessments.
const (
	LayerKeyword    = "keyword"
	LayerBehavior   = "behavioral"
	LayerClassifier = "classifier"
	LayerAudio      = "audio"
)

// Fixed layer weights, renormalized over the layers present.
var layerWeights = map[string]float64{
	LayerKeyword:    0.4,
	LayerBehavior:   0.2,
	LayerClassifier: 0.3,
	LayerAudio:      0.1,
}

// criticalCutoff promotes high-tier scores to critical. Matches the
// auto-report threshold used operationally.
const criticalCutoff = 0.95

// contextAdjustment is added for each rolling-context signal (category
// breadth, sustained threat average).
const contextAdjustment = 0.1

// Flags attached by the context layer.
const (
	FlagCategoryBreadth = "category_breadth"
	FlagSustainedThreat = "sustained_threat"
	FlagEscalation      = "escalation"
)

// Audio layer cues. Very loud or synthetic-sounding audio nudges the score.
const (
	audioRMSCue   = 0.5
	audioRMSBonus = 0.1
	audioZCRCue   = 0.1
	audioZCRBonus = 0.05
)

// Thresholds are the tier boundaries for the fused score.
type Thresholds struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultThresholds returns the operational defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.3, Medium: 0.6, High: 0.85}
}

// Classifier is the optional ML layer over raw transcripts. Implementations
// degrade to absent: a classifier that is not ready is skipped.
type Classifier interface {
	Classify(ctx context.Context, text string) (*ClassifierResult, error)
	IsReady() bool
}

// ClassifierResult is the ML layer verdict: a scam probability and the label
// that produced it.
type ClassifierResult struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// Input is one turn's worth of evidence.
type Input struct {
	Transcript    string
	AudioFeatures map[string]float64
	Context       *CallContext // optional rolling per-call state
}

// Assessment is the fused verdict for a turn.
type Assessment struct {
	Score      float64  `json:"score"`
	Level      Level    `json:"level"`
	Confidence float64  `json:"confidence"`
	Action     Action   `json:"recommended_action"`
	Layers     []string `json:"layers"`
	Categories []string `json:"categories,omitempty"`
	Flags      []string `json:"flags,omitempty"`
}

// Scorer fuses the detection layers. The classifier is optional.
type Scorer struct {
	thresholds Thresholds
	classifier Classifier
}

// NewScorer creates a scorer with the given tier thresholds. classifier may
// be nil.
func NewScorer(thresholds Thresholds, classifier Classifier) *Scorer {
	return &Scorer{thresholds: thresholds, classifier: classifier}
}

// Score fuses the available layers for one turn. A turn with no usable
// layers at all scores 0.0 / safe.
func (s *Scorer) Score(ctx context.Context, in Input) *Assessment {
	a := &Assessment{Level: LevelSafe, Action: ActionContinueMonitoring}

	var weighted, weightSum float64
	addLayer := func(name string, score float64) {
		w := layerWeights[name]
		weighted += w * score
		weightSum += w
		a.Layers = append(a.Layers, name)
	}

	normalized := Normalize(in.Transcript)
	if normalized != "" {
		kw := AnalyzeKeywords(normalized)
		addLayer(LayerKeyword, kw.Score)
		a.Categories = kw.Categories
		a.Flags = append(a.Flags, kw.Flags...)

		bh := AnalyzeBehavior(normalized)
		addLayer(LayerBehavior, bh.Score)
		a.Flags = append(a.Flags, bh.Flags...)

		if s.classifier != nil && s.classifier.IsReady() {
			res, err := s.classifier.Classify(ctx, in.Transcript)
			if err != nil {
				// Degraded classifier is not fatal, the layer is just absent
				log.Debug().Err(err).Msg("classifier_layer_skipped")
			} else if res != nil {
				addLayer(LayerClassifier, res.Score)
			}
		}
	}

	if len(in.AudioFeatures) > 0 {
		addLayer(LayerAudio, audioLayerScore(in.AudioFeatures))
	}

	if weightSum > 0 {
		a.Score = weighted / weightSum
	}
	a.Confidence = 0.5 + 0.25*float64(len(a.Layers))
	if a.Confidence > 1 {
		a.Confidence = 1
	}
	if len(a.Layers) == 0 {
		a.Confidence = 0
	}

	if in.Context != nil {
		in.Context.AddCategories(a.Categories)
		if in.Context.DistinctCategories() > 3 {
			a.Score += contextAdjustment
			a.Flags = append(a.Flags, FlagCategoryBreadth)
		}
		if avg, n := in.Context.RollingAverage(); n >= 5 && avg > s.thresholds.Medium {
			a.Score += contextAdjustment
			a.Flags = append(a.Flags, FlagSustainedThreat)
		}
	}
	if a.Score > 1 {
		a.Score = 1
	}

	a.Level = s.levelFor(a.Score)
	a.Action = actionFor(a.Level)

	if in.Context != nil {
		in.Context.Observe(a.Score, a.Level)
		if in.Context.Escalated() && a.Action != ActionHandoffToDecoy {
			a.Action = ActionHandoffToDecoy
			a.Flags = append(a.Flags, FlagEscalation)
		}
	}

	return a
}

// levelFor maps a fused score to its tier. A score equal to a boundary
// belongs to the tier above it.
func (s *Scorer) levelFor(score float64) Level {
	switch {
	case score < s.thresholds.Low:
		return LevelSafe
	case score < s.thresholds.Medium:
		return LevelLow
	case score < s.thresholds.High:
		return LevelMedium
	case score < criticalCutoff:
		return LevelHigh
	default:
		return LevelCritical
	}
}

func actionFor(level Level) Action {
	switch level {
	case LevelMedium:
		return ActionAlertUser
	case LevelHigh, LevelCritical:
		return ActionHandoffToDecoy
	default:
		return ActionContinueMonitoring
	}
}

func audioLayerScore(features map[string]float64) float64 {
	score := 0.0
	if features["rms_energy"] > audioRMSCue {
		score += audioRMSBonus
	}
	if features["zero_crossing_rate"] > audioZCRCue {
		score += audioZCRBonus
	}
	return score
}

// Thresholds exposes the configured tier boundaries.
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}
