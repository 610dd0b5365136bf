// Package gateway is the transport layer: the websocket media plane and
// the fiber control plane. Wire messages are closed tagged variants,
// validated here before anything reaches the session pipeline.
package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/intel"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

func unsupported(message, param string) *DecodeError {
	return &DecodeError{Code: "unsupported", Message: message, Param: param}
}

// Inbound message types.
const (
	TypeAudioChunk     = "audio_chunk"
	TypeHandoffRequest = "handoff_request"
	TypeTerminateBait  = "terminate_bait"
	TypePing           = "ping"
)

// Outbound message types.
const (
	TypeThreatUpdate     = "threat_update"
	TypeAIResponse       = "ai_response"
	TypeHandoffConfirmed = "handoff_confirmed"
	TypeBaitTerminated   = "bait_terminated"
	TypePong             = "pong"
	TypeError            = "error"
)

// AudioChunk carries one PCM16 frame, base64 over the JSON envelope.
type AudioChunk struct {
	Type     string `json:"type"`
	Sequence int    `json:"sequence"`
	DataB64  string `json:"data_b64"`

	pcm []byte
}

// PCM returns the decoded samples. Valid only after DecodeClientMessage.
func (c *AudioChunk) PCM() []byte { return c.pcm }

type HandoffRequest struct {
	Type      string `json:"type"`
	PersonaID string `json:"persona_id,omitempty"`
}

type TerminateBait struct {
	Type string `json:"type"`
}

type Ping struct {
	Type        string `json:"type"`
	TimestampMS int64  `json:"timestamp_ms,omitempty"`
}

// maxChunkBytes caps a single frame: 30ms at 48kHz stereo would still
// fit with room to spare.
const maxChunkBytes = 16 * 1024

// DecodeClientMessage parses and validates one inbound frame. Unknown
// or malformed frames produce a *DecodeError for the error channel;
// they never reach the pipeline.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeAudioChunk:
		var msg AudioChunk
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio_chunk", "")
		}
		if strings.TrimSpace(msg.DataB64) == "" {
			return nil, badRequest("audio_chunk.data_b64 is required", "data_b64")
		}
		if msg.Sequence < 0 {
			return nil, badRequest("audio_chunk.sequence must be >= 0", "sequence")
		}
		pcm, err := base64.StdEncoding.DecodeString(msg.DataB64)
		if err != nil {
			return nil, badRequest("audio_chunk.data_b64 is not valid base64", "data_b64")
		}
		if len(pcm) > maxChunkBytes {
			return nil, badRequest("audio_chunk exceeds maximum frame size", "data_b64")
		}
		msg.pcm = pcm
		return msg, nil
	case TypeHandoffRequest:
		var msg HandoffRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid handoff_request", "")
		}
		if id := strings.TrimSpace(msg.PersonaID); id != "" {
			if _, ok := decoy.PersonaByID(id); !ok {
				return nil, unsupported("unknown persona id", "persona_id")
			}
			msg.PersonaID = id
		}
		return msg, nil
	case TypeTerminateBait:
		var msg TerminateBait
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid terminate_bait", "")
		}
		return msg, nil
	case TypePing:
		var msg Ping
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid ping", "")
		}
		return msg, nil
	default:
		return nil, unsupported("unsupported message type", "type")
	}
}

// ThreatUpdate is emitted for every scored caller turn.
type ThreatUpdate struct {
	Type              string   `json:"type"`
	CallID            string   `json:"call_id"`
	Sequence          int      `json:"sequence"`
	Score             float64  `json:"score"`
	Level             string   `json:"level"`
	Confidence        float64  `json:"confidence"`
	RecommendedAction string   `json:"recommended_action"`
	Categories        []string `json:"categories,omitempty"`
	Flags             []string `json:"flags,omitempty"`
	TranscriptSnippet string   `json:"transcript_snippet,omitempty"`
	AlertTriggered    bool     `json:"alert_triggered"`
}

// AIResponse is a decoy turn delivered to the client for playback/TTS.
type AIResponse struct {
	Type     string         `json:"type"`
	CallID   string         `json:"call_id"`
	Text     string         `json:"text"`
	Stage    string         `json:"stage"`
	DelayMS  int64          `json:"delay_ms"`
	Entities []intel.Entity `json:"extracted_entities,omitempty"`
}

type HandoffConfirmed struct {
	Type        string `json:"type"`
	CallID      string `json:"call_id"`
	PersonaName string `json:"persona_name"`
}

type BaitTerminated struct {
	Type    string         `json:"type"`
	CallID  string         `json:"call_id"`
	Summary *decoy.Summary `json:"summary,omitempty"`
}

type Pong struct {
	Type        string `json:"type"`
	TimestampMS int64  `json:"timestamp_ms"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func errorFrom(err error) ErrorMessage {
	if de, ok := err.(*DecodeError); ok {
		return ErrorMessage{Type: TypeError, Code: de.Code, Message: de.Message, Param: de.Param}
	}
	return ErrorMessage{Type: TypeError, Code: "internal", Message: "internal error"}
}

func pongNow() Pong {
	return Pong{Type: TypePong, TimestampMS: time.Now().UnixMilli()}
}
