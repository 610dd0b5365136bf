package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportEmpty(t *testing.T) {
	r := BuildReport(nil)
	require.NotNil(t, r)
	assert.Zero(t, r.TotalEntities)
	assert.Zero(t, r.RiskScore)
	assert.Empty(t, r.FraudIndicators)
}

func TestBuildReportGroupsAndScores(t *testing.T) {
	r := BuildReport([]Entity{
		{Type: EntityUPI, Value: "victim@paytm", Confidence: 0.8},
		{Type: EntityUPI, Value: "victim@ybl", Confidence: 0.6},
		{Type: EntityOTP, Value: "482913", Confidence: 1.0},
	})

	assert.Equal(t, 3, r.TotalEntities)
	assert.Len(t, r.ByType[EntityUPI], 2)
	assert.Len(t, r.ByType[EntityOTP], 1)

	// 0.30 x best UPI confidence + 0.25 x OTP confidence.
	assert.InDelta(t, 0.30*0.8+0.25*1.0, r.RiskScore, 1e-9)
	assert.Equal(t, []string{
		"one-time code solicited",
		"payment handle collected",
	}, r.FraudIndicators)
}

func TestBuildReportRiskCapped(t *testing.T) {
	r := BuildReport([]Entity{
		{Type: EntityUPI, Confidence: 1.0},
		{Type: EntityBankAccount, Confidence: 1.0},
		{Type: EntityCard, Confidence: 1.0},
		{Type: EntityOTP, Confidence: 1.0},
		{Type: EntityCVV, Confidence: 1.0},
	})
	assert.Equal(t, 1.0, r.RiskScore)
}

func TestBuildReportIndicatorOrderStable(t *testing.T) {
	entities := []Entity{
		{Type: EntityPhone, Confidence: 0.5},
		{Type: EntityEmail, Confidence: 0.5},
		{Type: EntityAmount, Confidence: 0.5},
	}
	first := BuildReport(entities).FraudIndicators
	for range 5 {
		assert.Equal(t, first, BuildReport(entities).FraudIndicators)
	}
}
