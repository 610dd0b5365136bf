// Package intel extracts actionable fraud intelligence from call transcripts:
// payment handles, callback numbers, identifiers the caller tries to phish.
// Extracted values are masked before they leave this package.
package intel

import (
	"regexp"
	"strings"
)

// EntityType identifies what kind of value was extracted.
type EntityType string

const (
	EntityUPI         EntityType = "upi_id"
	EntityPhone       EntityType = "phone"
	EntityBankAccount EntityType = "bank_account"
	EntityIFSC        EntityType = "ifsc"
	EntityEmail       EntityType = "email"
	EntityOTP         EntityType = "otp"
	EntityCard        EntityType = "card"
	EntityCVV         EntityType = "cvv"
	EntityAadhaar     EntityType = "aadhaar"
	EntityPAN         EntityType = "pan"
	EntityAmount      EntityType = "amount"
)

// Entity is a single extracted value. Value is already masked.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Position   int        `json:"position"`
}

// Confidence model constants.
const (
	baseConfidence     = 0.5
	contextBonusPerHit = 0.1
	contextBonusCap    = 0.3
	validatorBonus     = 0.2
	falsePositiveMalus = 0.3
	confidenceFloor    = 0.3
	contextWindowChars = 50
)

// spec describes one entity type: its pattern, the context vocabulary that
// raises confidence, and whether a context hit is required at all (bare
// digit patterns like OTP drown in noise without it).
type entitySpec struct {
	typ            EntityType
	re             *regexp.Regexp
	context        []string
	requireContext bool
	validate       func(normalized string) bool
	falsePositive  func(normalized, window string) bool
}

// upiProviders are the handle suffixes of mainstream Indian payment apps.
var upiProviders = map[string]bool{
	"paytm": true, "okaxis": true, "okhdfcbank": true, "okicici": true,
	"oksbi": true, "ybl": true, "apl": true, "okbizaxis": true,
	"payzapp": true, "ibl": true, "axl": true, "upi": true,
}

var monthOrDateWords = regexp.MustCompile(`(?i)\b(date|year|born|birthday|jan(uary)?|feb(ruary)?|mar(ch)?|apr(il)?|may|jun(e)?|jul(y)?|aug(ust)?|sep(tember)?|oct(ober)?|nov(ember)?|dec(ember)?)\b`)
var yearLiteral = regexp.MustCompile(`^(19|20)\d{2}$`)

// specs are evaluated in order; earlier types consume their spans so a card
// number is not re-read as a bank account.
var specs = []entitySpec{
	{
		typ:     EntityCard,
		re:      regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
		context: []string{"card", "credit", "debit", "visa", "mastercard", "rupay"},
		validate: func(n string) bool {
			return len(n) == 16 && luhnValid(n)
		},
	},
	{
		typ:            EntityAadhaar,
		re:             regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
		context:        []string{"aadhaar", "aadhar", "uid", "identity"},
		requireContext: true,
		validate: func(n string) bool {
			// Aadhaar never starts with 0 or 1
			return len(n) == 12 && n[0] >= '2'
		},
	},
	{
		typ:     EntityPhone,
		re:      regexp.MustCompile(`(?:\+?91[\s-]?)?\b[6-9]\d{9}\b`),
		context: []string{"call", "number", "phone", "mobile", "whatsapp", "contact"},
		validate: func(n string) bool {
			return len(n) == 10 && n[0] >= '6'
		},
	},
	{
		typ:            EntityBankAccount,
		re:             regexp.MustCompile(`\b\d{9,18}\b`),
		context:        []string{"account", "bank", "a/c", "acct", "savings", "current"},
		requireContext: true,
		validate: func(n string) bool {
			return len(n) >= 9 && len(n) <= 18
		},
	},
	{
		typ:     EntityIFSC,
		re:      regexp.MustCompile(`\b[A-Za-z]{4}0[A-Za-z0-9]{6}\b`),
		context: []string{"ifsc", "branch", "bank", "transfer"},
		validate: func(n string) bool {
			return len(n) == 11 && n[4] == '0'
		},
	},
	{
		typ:     EntityPAN,
		re:      regexp.MustCompile(`\b[A-Za-z]{5}\d{4}[A-Za-z]\b`),
		context: []string{"pan", "permanent account", "tax"},
		validate: func(n string) bool {
			// Fourth character encodes the holder type
			return len(n) == 10 && strings.ContainsRune("PCHFATBLJG", rune(n[3]))
		},
	},
	{
		typ:     EntityUPI,
		re:      regexp.MustCompile(`\b[a-zA-Z0-9._-]{2,}@[a-zA-Z]{2,}\b`),
		context: []string{"upi", "pay", "transfer", "paytm", "phonepe", "gpay"},
		validate: func(n string) bool {
			at := strings.LastIndex(n, "@")
			return at > 0 && upiProviders[n[at+1:]]
		},
	},
	{
		typ:     EntityEmail,
		re:      regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
		context: []string{"email", "mail", "send", "gmail"},
		validate: func(n string) bool {
			at := strings.LastIndex(n, "@")
			return at > 0 && strings.Contains(n[at:], ".")
		},
	},
	{
		typ:            EntityOTP,
		re:             regexp.MustCompile(`\b\d{4,6}\b`),
		context:        []string{"otp", "code", "verification", "one time", "password", "pin"},
		requireContext: true,
		falsePositive: func(n, window string) bool {
			if yearLiteral.MatchString(n) {
				return true
			}
			return monthOrDateWords.MatchString(window)
		},
	},
	{
		typ:            EntityCVV,
		re:             regexp.MustCompile(`\b\d{3}\b`),
		context:        []string{"cvv", "security code", "back of", "three digit"},
		requireContext: true,
	},
	{
		typ:     EntityAmount,
		re:      regexp.MustCompile(`(?i)(?:rs\.?|inr|rupees|₹)\s?\d[\d,]*(?:\.\d+)?|\b\d[\d,]*\s?(?:rupees|rs)\b`),
		context: []string{"pay", "transfer", "fee", "fine", "send", "deposit", "amount"},
		validate: func(n string) bool {
			return len(n) > 0 && n != "0"
		},
	},
}

// Extractor scans transcripts for fraud intel. Safe for concurrent use.
type Extractor struct{}

// NewExtractor returns the transcript entity extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the masked, deduplicated entities found in text.
// Dedup is by (type, normalized value); the first occurrence wins.
func (e *Extractor) Extract(text string) []Entity {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	var out []Entity
	seen := make(map[string]bool)
	var consumed [][2]int

	for _, spec := range specs {
		for _, loc := range spec.re.FindAllStringIndex(text, -1) {
			if overlaps(consumed, loc[0], loc[1]) {
				continue
			}

			raw := text[loc[0]:loc[1]]
			norm := normalize(spec.typ, raw)
			if norm == "" {
				continue
			}

			window := contextWindow(lower, loc[0], loc[1])
			hits := countContextHits(window, spec.context)
			if spec.requireContext && hits == 0 {
				continue
			}

			key := string(spec.typ) + ":" + strings.ToLower(norm)
			if seen[key] {
				continue
			}

			conf := baseConfidence
			bonus := float64(hits) * contextBonusPerHit
			if bonus > contextBonusCap {
				bonus = contextBonusCap
			}
			conf += bonus
			if spec.validate != nil && spec.validate(norm) {
				conf += validatorBonus
			}
			if spec.falsePositive != nil && spec.falsePositive(norm, window) {
				conf -= falsePositiveMalus
			}
			if conf < confidenceFloor {
				// Too noisy to report at all.
				continue
			}
			if conf > 1 {
				conf = 1
			}

			seen[key] = true
			consumed = append(consumed, [2]int{loc[0], loc[1]})
			out = append(out, Entity{
				Type:       spec.typ,
				Value:      Mask(spec.typ, norm),
				Confidence: conf,
				Position:   loc[0],
			})
		}
	}
	return out
}

func contextWindow(lower string, start, end int) string {
	from := start - contextWindowChars
	if from < 0 {
		from = 0
	}
	to := end + contextWindowChars
	if to > len(lower) {
		to = len(lower)
	}
	return lower[from:to]
}

func countContextHits(window string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if strings.Contains(window, k) {
			hits++
		}
	}
	return hits
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

// luhnValid checks a digit string with the Luhn algorithm.
func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
