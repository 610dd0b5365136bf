package intel

import "strings"

// Mask redacts a normalized entity value for storage. Credentials that could
// be replayed against the victim are masked; attacker-supplied intel (UPI
// handles, callback numbers, emails) passes through so it stays actionable.
func Mask(t EntityType, normalized string) string {
	switch t {
	case EntityAadhaar:
		return "XXXX-XXXX-" + last(normalized, 4)
	case EntityPAN:
		if len(normalized) < 4 {
			return "XXXX"
		}
		return normalized[:2] + "XXXX" + last(normalized, 2)
	case EntityCard:
		return "XXXX-XXXX-XXXX-" + last(normalized, 4)
	case EntityBankAccount:
		return "XXXXXX" + last(normalized, 4)
	case EntityOTP:
		return "XXXX"
	case EntityCVV:
		return "XXX"
	default:
		return normalized
	}
}

func last(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// normalize canonicalizes a raw match for dedup and masking: separators
// stripped, identifiers uppercased or lowercased by convention.
func normalize(t EntityType, raw string) string {
	s := strings.TrimSpace(raw)
	switch t {
	case EntityAadhaar, EntityCard, EntityPhone, EntityBankAccount, EntityOTP, EntityCVV:
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		s = b.String()
		if t == EntityPhone && len(s) == 12 && strings.HasPrefix(s, "91") {
			s = s[2:]
		}
	case EntityPAN, EntityIFSC:
		s = strings.ToUpper(s)
	case EntityUPI, EntityEmail:
		s = strings.ToLower(s)
	case EntityAmount:
		var b strings.Builder
		for _, r := range s {
			if (r >= '0' && r <= '9') || r == '.' {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}
	return s
}
