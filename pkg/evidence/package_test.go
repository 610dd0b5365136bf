package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/intel"
)

func sampleTurns() []Turn {
	base := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	return []Turn{
		{
			CallID: "call-1", Sequence: 4, Speaker: SpeakerCaller,
			Transcript: "your kyc has expired, share the otp",
			Score:      0.72, Level: "high", Timestamp: base,
		},
		{
			CallID: "call-1", Sequence: 5, Speaker: SpeakerDecoy,
			Transcript: "otp? some numbers came on the phone, wait",
			Score:      0.72, Level: "high", Timestamp: base.Add(6 * time.Second),
			Entities: []intel.Entity{{Type: intel.EntityUPI, Value: "scammer@ybl", Confidence: 0.9}},
		},
		{
			CallID: "call-1", Sequence: 7, Speaker: SpeakerCaller,
			Transcript: "send it to scammer@ybl right now",
			Score:      0.81, Level: "high", Timestamp: base.Add(20 * time.Second),
			Entities: []intel.Entity{{Type: intel.EntityUPI, Value: "scammer@ybl", Confidence: 0.9}},
		},
	}
}

func TestBuildPackageChainVerifies(t *testing.T) {
	pkg := BuildPackage("call-1", sampleTurns(), nil)

	require.Len(t, pkg.Turns, 3)
	assert.NotEmpty(t, pkg.ChainHash)
	assert.Equal(t, pkg.Turns[2].Hash, pkg.ChainHash)
	assert.True(t, VerifyChain(pkg))
}

func TestVerifyChainDetectsTamperedTranscript(t *testing.T) {
	pkg := BuildPackage("call-1", sampleTurns(), nil)
	pkg.Turns[1].Transcript = "totally benign chat"
	assert.False(t, VerifyChain(pkg))
}

func TestVerifyChainDetectsDroppedTurn(t *testing.T) {
	pkg := BuildPackage("call-1", sampleTurns(), nil)
	pkg.Turns = pkg.Turns[:2]
	assert.False(t, VerifyChain(pkg))
}

func TestPackageDeduplicatesEntities(t *testing.T) {
	summary := &decoy.Summary{
		PersonaID:  "confused_senior",
		TotalTurns: 9,
		FinalStage: decoy.StageExtracting,
		ExtractedEntities: []intel.Entity{
			{Type: intel.EntityUPI, Value: "scammer@ybl", Confidence: 0.9},
			{Type: intel.EntityPhone, Value: "9876543210", Confidence: 0.8},
		},
	}

	pkg := BuildPackage("call-1", sampleTurns(), summary)

	require.NotNil(t, pkg.Decoy)
	require.Len(t, pkg.Entities, 2)
	assert.Equal(t, intel.EntityUPI, pkg.Entities[0].Type)
	assert.Equal(t, intel.EntityPhone, pkg.Entities[1].Type)
}

func TestChainSeedIsPerCall(t *testing.T) {
	a := BuildPackage("call-a", sampleTurns(), nil)
	b := BuildPackage("call-b", sampleTurns(), nil)
	assert.NotEqual(t, a.ChainHash, b.ChainHash)
}

func TestEmptyPackage(t *testing.T) {
	pkg := BuildPackage("call-1", nil, nil)
	assert.Empty(t, pkg.Turns)
	assert.Equal(t, chainSeed("call-1"), pkg.ChainHash)
	assert.True(t, VerifyChain(pkg))
}
