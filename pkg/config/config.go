package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ReplyProvider defines the backend used to rephrase decoy replies
type ReplyProvider string

const (
	ProviderNone       ReplyProvider = "none"       // Canned persona replies only
	ProviderOllama     ReplyProvider = "ollama"     // Local Ollama server
	ProviderOpenRouter ReplyProvider = "openrouter" // OpenRouter (default, has free tier)
	ProviderGroq       ReplyProvider = "groq"       // Groq (high-speed inference)
	ProviderCustom     ReplyProvider = "custom"     // Custom OpenAI-compatible endpoint
)

// Config holds global settings for the Rakshak gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	ListenAddr string // REST API listen address (default: ":8000")
	StreamAddr string // WebSocket media listen address (default: ":8001")
	LogLevel   string // zerolog level: trace, debug, info, warn, error

	// === Audio ===
	SampleRate int // PCM16 mono sample rate in Hz (default: 16000)

	// === Threat Thresholds (0.0 - 1.0) ===
	// Tune these to balance missed scams vs. false alarms
	LowThreshold    float64 // Score above this = LOW (default: 0.3)
	MediumThreshold float64 // Score above this = MEDIUM (default: 0.6)
	HighThreshold   float64 // Score above this = HIGH (default: 0.85)

	// === Feature Flags ===
	EnableClassifier bool // Enable ONNX transcript classification layer
	EnableSemantic   bool // Enable embedding similarity layer (requires Ollama)

	// === Collaborator Services ===
	TranscriberURL string // External STT service base URL (empty = disabled)
	OllamaURL      string // Ollama base URL for semantic embeddings

	// === Decoy Reply Model ===
	// Optional LLM that rephrases canned persona lines. Disabled by default;
	// the decoy works fully offline on the canned pools.
	ReplyProvider ReplyProvider
	ReplyAPIKey   string
	ReplyModel    string
	ReplyBaseURL  string

	// === Decoy Persona ===
	DefaultPersona string // confused_senior, cautious_professional, trusting_homemaker

	// === Storage ===
	RedisURL    string // Evidence sink (empty = in-memory sink)
	DatabaseURL string // Optional Postgres archive for terminal evidence packages

	// === Override Files ===
	PatternsFile string // YAML file overriding category weights (optional)
	PersonasFile string // YAML file adding or replacing decoy personas (optional)

	// === Session Management ===
	SessionIdleTTL  time.Duration // Idle sessions are reaped after this (default: 10m)
	MaxTranscribers int           // Bound on concurrent STT calls (default: 16)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	cfg := &Config{
		ListenAddr: GetEnv("RAKSHAK_LISTEN_ADDR", ":8000"),
		StreamAddr: GetEnv("RAKSHAK_STREAM_ADDR", ":8001"),
		LogLevel:   GetEnv("RAKSHAK_LOG_LEVEL", "info"),

		SampleRate: GetEnvInt("RAKSHAK_SAMPLE_RATE", 16000),

		// Thresholds - tune based on your false alarm tolerance
		LowThreshold:    GetEnvFloat("RAKSHAK_LOW_THRESHOLD", 0.3),
		MediumThreshold: GetEnvFloat("RAKSHAK_MEDIUM_THRESHOLD", 0.6),
		HighThreshold:   GetEnvFloat("RAKSHAK_HIGH_THRESHOLD", 0.85),

		EnableClassifier: GetEnvBool("RAKSHAK_ENABLE_CLASSIFIER", true),
		EnableSemantic:   GetEnvBool("RAKSHAK_ENABLE_SEMANTIC", true),

		TranscriberURL: GetEnv("RAKSHAK_TRANSCRIBER_URL", ""),
		OllamaURL:      GetEnv("RAKSHAK_OLLAMA_URL", "http://localhost:11434"),

		ReplyProvider: detectReplyProvider(),
		ReplyAPIKey:   GetEnv("RAKSHAK_REPLY_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		ReplyModel:    GetEnv("RAKSHAK_REPLY_MODEL", "meta-llama/llama-3.1-8b-instruct:free"),
		ReplyBaseURL:  GetEnv("RAKSHAK_REPLY_BASE_URL", ""),

		DefaultPersona: GetEnv("RAKSHAK_PERSONA", "confused_senior"),

		RedisURL:    GetEnv("RAKSHAK_REDIS_URL", GetEnv("REDIS_URL", "")),
		DatabaseURL: GetEnv("RAKSHAK_DATABASE_URL", GetEnv("DATABASE_URL", "")),

		PatternsFile: GetEnv("RAKSHAK_PATTERNS_FILE", ""),
		PersonasFile: GetEnv("RAKSHAK_PERSONAS_FILE", ""),

		SessionIdleTTL:  time.Duration(GetEnvInt("RAKSHAK_SESSION_IDLE_SECONDS", 600)) * time.Second,
		MaxTranscribers: clampInt(GetEnvInt("RAKSHAK_MAX_TRANSCRIBERS", 16), 1, 256),
	}

	return cfg
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// NewLocalConfig creates a Config optimized for local-only operation (no API calls).
// Use this for development, air-gapped deployments, or privacy-first installs.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.ReplyProvider = ProviderOllama
	cfg.ReplyBaseURL = "http://localhost:11434/v1"
	cfg.ReplyModel = "qwen2.5:7b"
	cfg.ReplyAPIKey = ""
	return cfg
}

// NewHighSensitivityConfig creates a Config that flags aggressively.
// Expect more false alarms; suitable for high-risk subscriber groups.
func NewHighSensitivityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.LowThreshold = 0.2
	cfg.MediumThreshold = 0.45
	cfg.HighThreshold = 0.7
	return cfg
}

func detectReplyProvider() ReplyProvider {
	// Check explicit provider setting first
	if p := os.Getenv("RAKSHAK_REPLY_PROVIDER"); p != "" {
		return ReplyProvider(p)
	}
	// Auto-detect based on available keys
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("RAKSHAK_REPLY_API_KEY") != "" {
		return ProviderOpenRouter
	}
	// No keys: canned replies only
	return ProviderNone
}

// Helper functions for environment variable parsing
// These are exported for use by other packages

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated list from an environment variable or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var problems []string

	if c.SampleRate != 8000 && c.SampleRate != 16000 && c.SampleRate != 44100 && c.SampleRate != 48000 {
		problems = append(problems, fmt.Sprintf("RAKSHAK_SAMPLE_RATE: unsupported rate %d", c.SampleRate))
	}
	if !(c.LowThreshold < c.MediumThreshold && c.MediumThreshold < c.HighThreshold) {
		problems = append(problems, "thresholds must satisfy low < medium < high")
	}
	if c.LowThreshold < 0 || c.HighThreshold > 1 {
		problems = append(problems, "thresholds must be within [0, 1]")
	}
	switch c.DefaultPersona {
	case "confused_senior", "cautious_professional", "trusting_homemaker":
	default:
		problems = append(problems, fmt.Sprintf("RAKSHAK_PERSONA: unknown persona %q", c.DefaultPersona))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
}
