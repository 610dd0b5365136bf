package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, 0.3, cfg.LowThreshold)
	assert.Equal(t, 0.6, cfg.MediumThreshold)
	assert.Equal(t, 0.85, cfg.HighThreshold)
	assert.Equal(t, "confused_senior", cfg.DefaultPersona)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAKSHAK_SAMPLE_RATE", "8000")
	t.Setenv("RAKSHAK_MEDIUM_THRESHOLD", "0.5")
	t.Setenv("RAKSHAK_PERSONA", "cautious_professional")

	cfg := NewDefaultConfig()
	assert.Equal(t, 8000, cfg.SampleRate)
	assert.Equal(t, 0.5, cfg.MediumThreshold)
	assert.Equal(t, "cautious_professional", cfg.DefaultPersona)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad sample rate", func(c *Config) { c.SampleRate = 11025 }},
		{"inverted thresholds", func(c *Config) { c.MediumThreshold = 0.9 }},
		{"unknown persona", func(c *Config) { c.DefaultPersona = "angry_teenager" }},
		{"threshold out of range", func(c *Config) { c.LowThreshold = -0.1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("RAKSHAK_TEST_STR", "hello")
	t.Setenv("RAKSHAK_TEST_BOOL", "true")
	t.Setenv("RAKSHAK_TEST_FLOAT", "0.42")
	t.Setenv("RAKSHAK_TEST_INT", "7")
	t.Setenv("RAKSHAK_TEST_SLICE", "a, b ,c")

	assert.Equal(t, "hello", GetEnv("RAKSHAK_TEST_STR", "x"))
	assert.Equal(t, "x", GetEnv("RAKSHAK_TEST_MISSING", "x"))
	assert.True(t, GetEnvBool("RAKSHAK_TEST_BOOL", false))
	assert.Equal(t, 0.42, GetEnvFloat("RAKSHAK_TEST_FLOAT", 0))
	assert.Equal(t, 7, GetEnvInt("RAKSHAK_TEST_INT", 0))
	assert.Equal(t, []string{"a", "b", "c"}, GetEnvSlice("RAKSHAK_TEST_SLICE", nil))

	// Unparseable values fall back to defaults
	t.Setenv("RAKSHAK_TEST_BOOL", "not-a-bool")
	assert.False(t, GetEnvBool("RAKSHAK_TEST_BOOL", false))
}
