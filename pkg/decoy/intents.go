package decoy

import (
	"github.com/rakshakai/rakshak/pkg/patterns"
)

// Intent is what the caller is currently pushing for. It selects which
// canned reply pool the persona draws from.
type Intent string

const (
	IntentFinancial    Intent = "financial"
	IntentThreat       Intent = "threat"
	IntentUrgency      Intent = "urgency"
	IntentRemoteAccess Intent = "remote_access"
	IntentVerification Intent = "verification"
	IntentPrize        Intent = "prize"
	IntentGeneral      Intent = "general"
)

// intentRouting maps pattern categories to intents in precedence order.
// Specific asks (install this app, read the OTP) win over generic pressure.
var intentRouting = []struct {
	cats   []patterns.Category
	intent Intent
}{
	{[]patterns.Category{patterns.CategoryRemoteAccess}, IntentRemoteAccess},
	{[]patterns.Category{patterns.CategoryVerification}, IntentVerification},
	{[]patterns.Category{patterns.CategoryFinancial}, IntentFinancial},
	{[]patterns.Category{patterns.CategoryCoercion, patterns.CategoryImpersonation}, IntentThreat},
	{[]patterns.Category{patterns.CategoryPrize}, IntentPrize},
	{[]patterns.Category{patterns.CategoryUrgency}, IntentUrgency},
}

// DetectIntent routes a normalized caller utterance to a reply intent.
func DetectIntent(normalized string) Intent {
	reg := patterns.Get()
	for _, route := range intentRouting {
		if reg.MatchAny(normalized, route.cats...) != nil {
			return route.intent
		}
	}
	return IntentGeneral
}
