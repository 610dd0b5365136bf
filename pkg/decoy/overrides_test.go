package decoy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOverrideFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPersonaOverridesAddsPersona(t *testing.T) {
	path := writeOverrideFile(t, `
personas:
  - id: retired_teacher
    name: Meena Joshi
    age: 61
    background: retired schoolteacher
    passive: true
    replies:
      financial:
        - "Money matters I discuss only at the bank counter, beta."
    general:
      - "Hello, who is this speaking?"
`)

	require.NoError(t, LoadPersonaOverrides(path))
	t.Cleanup(func() {
		personasMu.Lock()
		delete(personas, "retired_teacher")
		personasMu.Unlock()
	})

	p, ok := PersonaByID("retired_teacher")
	require.True(t, ok)
	assert.Equal(t, "Meena Joshi", p.Name)
	assert.True(t, p.Passive)
	assert.Len(t, p.Replies[IntentFinancial], 1)
	assert.Contains(t, PersonaIDs(), "retired_teacher")
}

func TestLoadPersonaOverridesRejectsUnknownIntent(t *testing.T) {
	path := writeOverrideFile(t, `
personas:
  - id: broken
    name: Broken
    replies:
      bribery:
        - "nope"
    general:
      - "hello"
`)

	err := LoadPersonaOverrides(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown intent")

	_, ok := PersonaByID("broken")
	assert.False(t, ok, "a rejected file must register nothing")
}

func TestLoadPersonaOverridesRequiresGeneralPool(t *testing.T) {
	path := writeOverrideFile(t, `
personas:
  - id: silent
    name: Silent
`)

	require.Error(t, LoadPersonaOverrides(path))
}

func TestLoadPersonaOverridesMissingFile(t *testing.T) {
	require.Error(t, LoadPersonaOverrides(filepath.Join(t.TempDir(), "absent.yaml")))
}
