package intel

import "sort"

// Report groups a call's extracted entities for investigators. It is
// produced when a decoy engagement terminates.
type Report struct {
	TotalEntities   int                     `json:"total_entities"`
	ByType          map[EntityType][]Entity `json:"by_type"`
	FraudIndicators []string                `json:"fraud_indicators"`
	RiskScore       float64                 `json:"risk_score"`
}

// Indicator weights. Payment rails and callback identities carry the
// most investigative value; phished credentials show intent.
var indicatorFor = map[EntityType]struct {
	text   string
	weight float64
}{
	EntityUPI:         {"payment handle collected", 0.30},
	EntityBankAccount: {"bank account number collected", 0.30},
	EntityCard:        {"card number solicited", 0.25},
	EntityIFSC:        {"branch routing code collected", 0.15},
	EntityPhone:       {"callback number collected", 0.20},
	EntityEmail:       {"contact email collected", 0.10},
	EntityOTP:         {"one-time code solicited", 0.25},
	EntityCVV:         {"card security code solicited", 0.25},
	EntityAadhaar:     {"national id solicited", 0.20},
	EntityPAN:         {"tax id solicited", 0.15},
	EntityAmount:      {"specific amount demanded", 0.10},
}

// BuildReport aggregates entities by type and derives an overall risk
// score: the sum of per-type indicator weights, scaled by confidence of
// the strongest entity of that type, capped at 1.0.
func BuildReport(entities []Entity) *Report {
	r := &Report{ByType: make(map[EntityType][]Entity)}
	if len(entities) == 0 {
		return r
	}

	best := make(map[EntityType]float64)
	for _, e := range entities {
		r.ByType[e.Type] = append(r.ByType[e.Type], e)
		if e.Confidence > best[e.Type] {
			best[e.Type] = e.Confidence
		}
	}
	r.TotalEntities = len(entities)

	types := make([]EntityType, 0, len(r.ByType))
	for t := range r.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		ind, ok := indicatorFor[t]
		if !ok {
			continue
		}
		r.FraudIndicators = append(r.FraudIndicators, ind.text)
		r.RiskScore += ind.weight * best[t]
	}
	if r.RiskScore > 1 {
		r.RiskScore = 1
	}
	return r
}
