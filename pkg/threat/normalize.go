package threat

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares a transcript for pattern matching: NFKC folds
// stylistic Unicode variants to their ASCII equivalents, then the text is
// lowercased. STT engines occasionally emit fullwidth or composed forms.
func Normalize(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}
