package decoy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rakshakai/rakshak/pkg/config"
	"github.com/rakshakai/rakshak/pkg/httputil"
)

// DefaultTemperature keeps replies varied but in character. Persona voice
// breaks down at higher values.
const DefaultTemperature = 0.7

// ModelConfig holds the configuration for the LLM reply model
type ModelConfig struct {
	Provider    config.ReplyProvider
	APIKey      string // Optional for Ollama
	Model       string
	BaseURL     string  // Optional override
	Temperature float64 // Defaults to DefaultTemperature
}

// LLMReplyModel rephrases canned persona lines through an OpenAI-compatible
// chat endpoint so the decoy does not repeat itself verbatim across calls.
type LLMReplyModel struct {
	client      *http.Client
	provider    config.ReplyProvider
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewLLMReplyModel creates a reply model for the given provider. Returns
// nil when the provider is none, so callers can pass the result straight
// to NewEngine.
func NewLLMReplyModel(cfg ModelConfig) *LLMReplyModel {
	var baseURL string

	if cfg.Model == "" {
		if cfg.Provider == config.ProviderOllama {
			cfg.Model = "qwen2.5:7b"
		} else {
			cfg.Model = "meta-llama/llama-3.1-8b-instruct:free"
		}
	}

	switch cfg.Provider {
	case config.ProviderNone:
		return nil
	case config.ProviderOllama:
		baseURL = "http://localhost:11434/v1"
	case config.ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	case config.ProviderCustom:
		baseURL = cfg.BaseURL
	case config.ProviderOpenRouter:
		fallthrough
	default:
		baseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return &LLMReplyModel{
		client:      httputil.SlowClient(),
		provider:    cfg.Provider,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: temperature,
	}
}

// Rephrase asks the model for an in-character variation of line. The reply
// is clamped to a couple of sentences; anything that smells like the model
// breaking character falls back to the canned line.
func (m *LLMReplyModel) Rephrase(ctx context.Context, persona *Persona, line, callerText string, history []TranscriptTurn) (string, error) {
	if m.provider == config.ProviderOpenRouter && m.apiKey == "" {
		return "", fmt.Errorf("API key not configured for OpenRouter")
	}

	systemPrompt := fmt.Sprintf(`You are role-playing %s, a %d-year-old Indian person: %s.
You are on a phone call with a scammer. You must keep them talking without
ever sending money, sharing real credentials, or revealing you know it is a scam.

Rules:
- Stay in character. Mix simple English with occasional Hindi words, as %s would.
- Reply with ONE or TWO short spoken sentences only. No narration, no quotes, no stage directions.
- Never output real-looking account numbers, OTPs, or card numbers.
- Your reply should convey roughly the same thing as the DRAFT, in your own words.`,
		persona.Name, persona.Age, persona.Background, persona.Name)

	var prompt strings.Builder
	if window := contextWindow(history); window != "" {
		prompt.WriteString("Recent exchange:\n")
		prompt.WriteString(window)
		prompt.WriteString("\n")
	}
	fmt.Fprintf(&prompt, "The caller just said: %q\n\nDRAFT: %s", callerText, line)
	userPrompt := prompt.String()

	req := chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: m.temperature,
		MaxTokens:   120,
	}

	content, err := m.callChat(ctx, req)
	if err != nil {
		return "", err
	}

	reply := sanitizeReply(content)
	if reply == "" {
		return "", fmt.Errorf("model returned empty or out-of-character reply")
	}
	return reply, nil
}

// contextWindow renders the last few transcript turns for the prompt.
// The current caller utterance is already in the prompt, so it is
// dropped from the tail.
func contextWindow(history []TranscriptTurn) string {
	const window = 6
	if len(history) > 0 && history[len(history)-1].Speaker == SpeakerCaller {
		history = history[:len(history)-1]
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return ""
	}

	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Text)
	}
	return b.String()
}

// sanitizeReply strips quoting and narration artifacts chat models add.
func sanitizeReply(content string) string {
	reply := strings.TrimSpace(content)
	reply = strings.Trim(reply, `"'`)
	if i := strings.Index(reply, "\n"); i != -1 {
		reply = strings.TrimSpace(reply[:i])
	}
	// Stage directions mean the model broke character.
	if strings.HasPrefix(reply, "*") || strings.HasPrefix(reply, "(") {
		return ""
	}
	if len(reply) > 300 {
		reply = reply[:300]
	}
	return reply
}

func (m *LLMReplyModel) callChat(ctx context.Context, reqBody chatRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(m.baseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return result.Choices[0].Message.Content, nil
}
