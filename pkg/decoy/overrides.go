package decoy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PersonaOverrides is the YAML schema for adding or replacing personas
// in the field without a rebuild.
type PersonaOverrides struct {
	Personas []PersonaSpec `yaml:"personas"`
}

// PersonaSpec is one persona entry of an override file. Reply pools are
// keyed by intent name; lines for unknown intents are rejected so a
// typo cannot silently strand a pool.
type PersonaSpec struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	Age        int                 `yaml:"age"`
	Background string              `yaml:"background"`
	Passive    bool                `yaml:"passive"`
	Replies    map[string][]string `yaml:"replies"`
	General    []string            `yaml:"general"`
}

var knownIntents = map[Intent]bool{
	IntentFinancial:    true,
	IntentThreat:       true,
	IntentUrgency:      true,
	IntentRemoteAccess: true,
	IntentVerification: true,
	IntentPrize:        true,
}

// LoadPersonaOverrides reads a YAML persona file and registers its
// entries. An entry with the id of a built-in persona replaces it.
func LoadPersonaOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read persona overrides: %w", err)
	}

	var overrides PersonaOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse persona overrides: %w", err)
	}

	loaded := make([]*Persona, 0, len(overrides.Personas))
	for i, spec := range overrides.Personas {
		p, err := spec.toPersona()
		if err != nil {
			return fmt.Errorf("persona %d in %s: %w", i, path, err)
		}
		loaded = append(loaded, p)
	}

	personasMu.Lock()
	defer personasMu.Unlock()
	for _, p := range loaded {
		personas[p.ID] = p
	}
	return nil
}

func (s PersonaSpec) toPersona() (*Persona, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if s.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if len(s.General) == 0 {
		return nil, fmt.Errorf("persona %q needs at least one general reply", s.ID)
	}

	replies := make(map[Intent][]string, len(s.Replies))
	for name, lines := range s.Replies {
		intent := Intent(name)
		if !knownIntents[intent] {
			return nil, fmt.Errorf("unknown intent %q", name)
		}
		if len(lines) == 0 {
			return nil, fmt.Errorf("intent %q has no replies", name)
		}
		replies[intent] = lines
	}

	return &Persona{
		ID:         s.ID,
		Name:       s.Name,
		Age:        s.Age,
		Background: s.Background,
		Passive:    s.Passive,
		Replies:    replies,
		General:    s.General,
	}, nil
}
