package gateway

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippetShortTextUntouched(t *testing.T) {
	if got := snippet("hello"); got != "hello" {
		t.Errorf("snippet(hello) = %q", got)
	}
}

func TestSnippetTruncatesLongText(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := snippet(long)
	if len(got) > 120+len("…") {
		t.Errorf("snippet too long: %d bytes", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("snippet missing ellipsis: %q", got)
	}
}

func TestSnippetKeepsRunesIntact(t *testing.T) {
	// One ASCII byte then 3-byte Devanagari runes: boundaries fall at
	// 1, 4, 7, ... so a byte-offset cut at 120 lands mid-rune.
	long := "a" + strings.Repeat("क", 100) // क
	got := snippet(long)
	if !utf8.ValidString(got) {
		t.Fatalf("snippet produced invalid UTF-8: %q", got)
	}
	if strings.ContainsRune(got, utf8.RuneError) {
		t.Errorf("snippet contains replacement rune: %q", got)
	}
}
