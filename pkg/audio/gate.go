// Package audio validates incoming call audio and extracts the acoustic
// features the threat scorer consumes. Audio is PCM16 little-endian mono.
package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameDuration is returned for frames that are not exactly
	// 10, 20 or 30 ms at the configured sample rate.
	ErrInvalidFrameDuration = errors.New("audio: invalid frame duration")

	// ErrMalformedFrame is returned for frames that cannot be PCM16
	// (empty or odd byte length).
	ErrMalformedFrame = errors.New("audio: malformed pcm16 frame")
)

// VoiceDetector decides whether a frame contains speech.
// Implementations may call out to an external VAD engine.
type VoiceDetector interface {
	IsSpeech(pcm []byte, sampleRate int) (bool, error)
}

// Frame is the gate's verdict on a single audio frame.
type Frame struct {
	Speech     bool               `json:"speech"`
	DurationMs int                `json:"duration_ms"`
	Features   map[string]float64 `json:"features,omitempty"`
}

// Gate admits only well-formed speech frames into the pipeline.
// A nil VoiceDetector falls back to an RMS energy threshold.
type Gate struct {
	sampleRate int
	vad        VoiceDetector
}

// energyFloor is the RMS threshold for the fallback speech check.
// Normalized PCM16 below this is treated as silence or line noise.
const energyFloor = 0.01

// NewGate creates a gate for the given sample rate. vad may be nil.
func NewGate(sampleRate int, vad VoiceDetector) *Gate {
	return &Gate{sampleRate: sampleRate, vad: vad}
}

// SampleRate returns the configured sample rate in Hz.
func (g *Gate) SampleRate() int {
	return g.sampleRate
}

// Process validates a PCM16 frame and, for speech frames, extracts features.
// Non-speech frames come back with Speech=false and no features so callers
// can short-circuit without side effects.
func (g *Gate) Process(pcm []byte) (*Frame, error) {
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(pcm))
	}

	samples := len(pcm) / 2
	if (samples*1000)%g.sampleRate != 0 {
		return nil, fmt.Errorf("%w: %d samples at %d Hz", ErrInvalidFrameDuration, samples, g.sampleRate)
	}
	durationMs := samples * 1000 / g.sampleRate
	switch durationMs {
	case 10, 20, 30:
	default:
		return nil, fmt.Errorf("%w: %d ms (want 10, 20 or 30)", ErrInvalidFrameDuration, durationMs)
	}

	signal := decodePCM16(pcm)

	speech, err := g.isSpeech(pcm, signal)
	if err != nil {
		// Degraded VAD is not fatal: fall back to the energy check
		speech = rms(signal) > energyFloor
	}

	frame := &Frame{Speech: speech, DurationMs: durationMs}
	if speech {
		frame.Features = extractFeatures(signal, g.sampleRate, durationMs)
	}
	return frame, nil
}

func (g *Gate) isSpeech(pcm []byte, signal []float64) (bool, error) {
	if g.vad == nil {
		return rms(signal) > energyFloor, nil
	}
	return g.vad.IsSpeech(pcm, g.sampleRate)
}
