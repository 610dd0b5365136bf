package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/audio"
	"github.com/rakshakai/rakshak/pkg/session"
)

const (
	wsReadLimit    = 64 * 1024
	wsReadTimeout  = 90 * time.Second
	wsWriteTimeout = 10 * time.Second

	// frameQueueDepth bounds in-flight frames per call. The decoy delay
	// can stall the worker for seconds; excess frames are dropped, not
	// queued without bound.
	frameQueueDepth = 64
)

// StreamServer is the media-plane websocket endpoint. One connection
// per call at /ws/call/{id}; frames for a call are processed by a
// single worker goroutine so turns stay ordered.
type StreamServer struct {
	pipeline *session.Pipeline
	registry *session.Registry
	upgrader websocket.Upgrader
}

func NewStreamServer(pipeline *session.Pipeline, registry *session.Registry) *StreamServer {
	return &StreamServer{
		pipeline: pipeline,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Clients are softphone bridges, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the stream mux, mounted on its own listener.
func (s *StreamServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/call/", s.handleCall)
	return mux
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) send(v any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		log.Debug().Err(err).Msg("ws_write_failed")
	}
}

func (s *StreamServer) handleCall(w http.ResponseWriter, r *http.Request) {
	callID := strings.TrimPrefix(r.URL.Path, "/ws/call/")
	if callID == "" || strings.Contains(callID, "/") {
		http.Error(w, "call id required", http.StatusBadRequest)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("call_id", callID).Msg("ws_upgrade_failed")
		return
	}
	conn := &wsConn{conn: raw}
	raw.SetReadLimit(wsReadLimit)

	s.registry.Connect(callID)

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan AudioChunk, frameQueueDepth)

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		for chunk := range frames {
			s.processChunk(ctx, conn, callID, chunk)
		}
	}()

	s.readLoop(ctx, conn, callID, frames)

	// Reader is done: stop any in-flight decoy delay, drain the worker,
	// then tear the session down.
	cancel()
	close(frames)
	workers.Wait()
	s.pipeline.EndCall(callID)
	_ = raw.Close()
}

func (s *StreamServer) readLoop(ctx context.Context, conn *wsConn, callID string, frames chan<- AudioChunk) {
	for {
		_ = conn.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("call_id", callID).Msg("ws_read_closed")
			}
			return
		}

		msg, err := DecodeClientMessage(data)
		if err != nil {
			conn.send(errorFrom(err))
			continue
		}

		switch m := msg.(type) {
		case AudioChunk:
			select {
			case frames <- m:
			default:
				log.Warn().Str("call_id", callID).Int("sequence", m.Sequence).Msg("ws_frame_dropped")
			}
		case HandoffRequest:
			s.handleHandoff(ctx, conn, callID, m.PersonaID)
		case TerminateBait:
			s.handleTerminate(ctx, conn, callID)
		case Ping:
			conn.send(pongNow())
		}
	}
}

func (s *StreamServer) processChunk(ctx context.Context, conn *wsConn, callID string, chunk AudioChunk) {
	res, err := s.pipeline.ProcessFrame(ctx, callID, chunk.Sequence, chunk.PCM())
	if err != nil {
		switch {
		case errors.Is(err, audio.ErrInvalidFrameDuration):
			conn.send(ErrorMessage{Type: TypeError, Code: "invalid_frame_duration", Message: err.Error(), Param: "data_b64"})
		case errors.Is(err, audio.ErrMalformedFrame):
			conn.send(ErrorMessage{Type: TypeError, Code: "malformed_frame", Message: err.Error(), Param: "data_b64"})
		case errors.Is(err, session.ErrConcurrentMutation):
			conn.send(ErrorMessage{Type: TypeError, Code: "session_terminated", Message: "session state was corrupted and has been terminated"})
		default:
			log.Error().Err(err).Str("call_id", callID).Msg("frame_processing_failed")
			conn.send(errorFrom(err))
		}
		return
	}

	if res.Assessment != nil {
		a := res.Assessment
		conn.send(ThreatUpdate{
			Type:              TypeThreatUpdate,
			CallID:            callID,
			Sequence:          res.Sequence,
			Score:             a.Score,
			Level:             string(a.Level),
			Confidence:        a.Confidence,
			RecommendedAction: string(a.Action),
			Categories:        a.Categories,
			Flags:             a.Flags,
			TranscriptSnippet: snippet(res.Transcript),
			AlertTriggered:    a.Action != "continue_monitoring",
		})
	}
	if res.Handoff {
		conn.send(HandoffConfirmed{Type: TypeHandoffConfirmed, CallID: callID, PersonaName: res.Persona})
	}
	if res.DecoyReply != nil {
		conn.send(AIResponse{
			Type:     TypeAIResponse,
			CallID:   callID,
			Text:     res.DecoyReply.Text,
			Stage:    string(res.DecoyReply.Stage),
			DelayMS:  res.DecoyReply.Delay.Milliseconds(),
			Entities: res.Entities,
		})
	}
}

func (s *StreamServer) handleHandoff(ctx context.Context, conn *wsConn, callID, personaID string) {
	name, err := s.pipeline.HandoffToDecoy(ctx, callID, personaID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			// Disconnect race; the call is gone.
			return
		}
		conn.send(ErrorMessage{Type: TypeError, Code: "handoff_failed", Message: err.Error()})
		return
	}
	conn.send(HandoffConfirmed{Type: TypeHandoffConfirmed, CallID: callID, PersonaName: name})
}

func (s *StreamServer) handleTerminate(ctx context.Context, conn *wsConn, callID string) {
	summary, err := s.pipeline.TerminateDecoy(ctx, callID)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			return
		}
		conn.send(ErrorMessage{Type: TypeError, Code: "terminate_failed", Message: err.Error()})
		return
	}
	conn.send(BaitTerminated{Type: TypeBaitTerminated, CallID: callID, Summary: summary})
}

func snippet(text string) string {
	const max = 120
	if len(text) <= max {
		return text
	}
	// Back up to a rune boundary so the cut never splits a multibyte
	// character.
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
