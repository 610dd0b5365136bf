package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rakshakai/rakshak/pkg/httputil"
)

// Transcriber turns speech audio into text. An empty transcript with a nil
// error means the engine heard nothing usable this turn.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// HTTPTranscriber calls an external STT service over its JSON API.
// Concurrency is bounded so a slow engine cannot pile up goroutines.
type HTTPTranscriber struct {
	baseURL string
	client  *http.Client
	sem     *httputil.Semaphore
}

// NewHTTPTranscriber creates a transcriber client for the given base URL.
// maxConcurrent bounds in-flight requests.
func NewHTTPTranscriber(baseURL string, maxConcurrent int) *HTTPTranscriber {
	return &HTTPTranscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httputil.SlowClient(),
		sem:     httputil.NewSemaphore(maxConcurrent),
	}
}

type transcribeRequest struct {
	Audio      string `json:"audio"` // base64 PCM16 little-endian mono
	SampleRate int    `json:"sample_rate"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe sends a PCM16 frame to the STT service and returns the text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if err := t.sem.Acquire(ctx); err != nil {
		return "", err
	}
	defer t.sem.Release()

	body, err := json.Marshal(transcribeRequest{
		Audio:      base64.StdEncoding.EncodeToString(pcm),
		SampleRate: sampleRate,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v1/transcribe", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcriber request failed: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadErrorBody(resp.Body)
		return "", fmt.Errorf("transcriber error %d: %s", resp.StatusCode, string(errBody))
	}

	payload, err := httputil.ReadResponseBody(resp.Body, 0)
	if err != nil {
		return "", err
	}

	var out transcribeResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("transcriber response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
