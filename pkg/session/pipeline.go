package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/audio"
	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/evidence"
	"github.com/rakshakai/rakshak/pkg/intel"
	"github.com/rakshakai/rakshak/pkg/telemetry"
	"github.com/rakshakai/rakshak/pkg/threat"
)

// Pipeline drives one caller frame through gate, transcription, scoring
// and, once a decoy is active, engagement. All session mutation happens
// inside Registry.WithSession; the slow collaborators (transcriber,
// reply model, evidence sink) run outside it.
type Pipeline struct {
	registry    *Registry
	gate        *audio.Gate
	transcriber audio.Transcriber // optional
	extractor   *intel.Extractor
	scorer      *threat.Scorer
	sink        evidence.Sink // optional
	replyModel  decoy.ReplyModel
	metrics     *telemetry.Client

	defaultPersona string
	seedFn         func() int64
}

// PipelineConfig wires the pipeline's collaborators. Registry, Gate and
// Scorer are required; everything else degrades to absent.
type PipelineConfig struct {
	Registry       *Registry
	Gate           *audio.Gate
	Scorer         *threat.Scorer
	Transcriber    audio.Transcriber
	Sink           evidence.Sink
	ReplyModel     decoy.ReplyModel
	Metrics        *telemetry.Client
	DefaultPersona string

	// SeedFn supplies decoy randomness; tests pin it.
	SeedFn func() int64
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Global
	}
	if cfg.DefaultPersona == "" {
		cfg.DefaultPersona = "confused_senior"
	}
	if cfg.SeedFn == nil {
		cfg.SeedFn = func() int64 { return time.Now().UnixNano() }
	}
	return &Pipeline{
		registry:       cfg.Registry,
		gate:           cfg.Gate,
		transcriber:    cfg.Transcriber,
		extractor:      intel.NewExtractor(),
		scorer:         cfg.Scorer,
		sink:           cfg.Sink,
		replyModel:     cfg.ReplyModel,
		metrics:        cfg.Metrics,
		defaultPersona: cfg.DefaultPersona,
		seedFn:         cfg.SeedFn,
	}
}

// TurnResult is what the transport layer gets for every processed frame.
// It is always well-formed: internal degradation shows up as missing
// optional fields, never as an error.
type TurnResult struct {
	CallID     string             `json:"call_id"`
	Sequence   int                `json:"sequence"`
	Speech     bool               `json:"speech"`
	Transcript string             `json:"transcript,omitempty"`
	Assessment *threat.Assessment `json:"assessment,omitempty"`
	Entities   []intel.Entity     `json:"entities,omitempty"`
	DecoyReply *decoy.Reply       `json:"decoy_reply,omitempty"`
	Handoff    bool               `json:"handoff,omitempty"`
	Persona    string             `json:"persona,omitempty"`
}

// ProcessFrame runs one audio frame for callID. Unknown call ids mean
// the call already ended; the frame is dropped without error. Malformed
// frames return the gate's typed error and affect no other session.
func (p *Pipeline) ProcessFrame(ctx context.Context, callID string, sequence int, pcm []byte) (*TurnResult, error) {
	result := &TurnResult{CallID: callID, Sequence: sequence}

	frame, err := p.gate.Process(pcm)
	if err != nil {
		return nil, err
	}
	p.metrics.FrameProcessed(frame.Speech)
	if !frame.Speech {
		// Non-speech short-circuits: no transcription, scoring or storage.
		return result, nil
	}
	result.Speech = true

	transcript := p.transcribe(ctx, pcm)
	if transcript == "" {
		return result, nil
	}
	result.Transcript = transcript
	result.Entities = p.extractor.Extract(transcript)

	// Snapshot routing state under the session lock, then run the slow
	// path for whichever mode the session is in.
	var engine *decoy.Engine
	var callCtx *threat.CallContext
	err = p.registry.WithSession(callID, func(s *Session) error {
		s.Sequence = sequence
		s.AdvanceState(StateMonitoring)
		if s.DecoyActive() {
			engine = s.Decoy
		}
		callCtx = s.Context
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.registry.Get(callID) == nil {
		// Call ended while the frame was in flight.
		return result, nil
	}

	if engine != nil {
		return p.decoyTurn(ctx, result, engine)
	}
	return p.scoreTurn(ctx, result, frame.Features, callCtx)
}

// transcribe returns "" when no transcriber is configured or it cannot
// produce text. Transcription failure is absence of signal, not an error.
func (p *Pipeline) transcribe(ctx context.Context, pcm []byte) string {
	if p.transcriber == nil {
		return ""
	}
	text, err := p.transcriber.Transcribe(ctx, pcm, p.gate.SampleRate())
	if err != nil {
		log.Debug().Err(err).Msg("transcription_skipped")
		return ""
	}
	return text
}

func (p *Pipeline) scoreTurn(ctx context.Context, result *TurnResult, features map[string]float64, callCtx *threat.CallContext) (*TurnResult, error) {
	// The classifier layer may block on HTTP or ONNX inference, so
	// scoring runs outside the session lock. CallContext carries its
	// own lock, making the snapshot safe to hand to the scorer here.
	assessment := p.scorer.Score(ctx, threat.Input{
		Transcript:    result.Transcript,
		AudioFeatures: features,
		Context:       callCtx,
	})

	alive := false
	err := p.registry.WithSession(result.CallID, func(s *Session) error {
		alive = true
		s.ThreatScore = assessment.Score
		if assessment.Action != threat.ActionContinueMonitoring {
			s.AdvanceState(StateEscalating)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !alive {
		// Call ended while the turn was being scored.
		return result, nil
	}

	result.Assessment = assessment
	p.metrics.TurnScored(assessment.Action != threat.ActionContinueMonitoring)

	if assessment.Action == threat.ActionHandoffToDecoy {
		persona, herr := p.HandoffToDecoy(ctx, result.CallID, "")
		if herr != nil {
			log.Warn().Err(herr).Str("call_id", result.CallID).Msg("auto_handoff_failed")
		} else {
			result.Handoff = true
			result.Persona = persona
		}
	}

	p.storeTurn(ctx, result, evidence.SpeakerCaller, assessment.Score, string(assessment.Level))
	return result, nil
}

func (p *Pipeline) decoyTurn(ctx context.Context, result *TurnResult, engine *decoy.Engine) (*TurnResult, error) {
	engine.AddIntel(result.Entities)

	// The engagement delay runs here, outside any session lock.
	reply, err := engine.Respond(ctx, result.Transcript)
	if err != nil {
		// Cancelled mid-delay: the call is ending, drop the reply.
		return result, nil
	}
	result.DecoyReply = reply
	p.metrics.DecoyTurn()

	if p.registry.Get(result.CallID) == nil {
		return result, nil
	}

	score, level := p.lastScore(result.CallID)
	p.storeTurn(ctx, result, evidence.SpeakerCaller, score, level)
	p.storeDecoyReply(ctx, result, reply, score, level)
	return result, nil
}

// HandoffToDecoy activates a decoy for the call. An empty personaID
// selects the configured default. Returns the persona display name.
func (p *Pipeline) HandoffToDecoy(ctx context.Context, callID, personaID string) (string, error) {
	if personaID == "" {
		personaID = p.defaultPersona
	}
	persona, ok := decoy.PersonaByID(personaID)
	if !ok {
		return "", decoy.ErrUnknownPersona
	}
	if p.registry.Get(callID) == nil {
		return "", ErrUnknownSession
	}

	var name string
	err := p.registry.WithSession(callID, func(s *Session) error {
		if s.DecoyActive() {
			name = s.Decoy.Persona().Name
			return nil
		}
		s.Decoy = decoy.NewEngine(persona, p.seedFn(), p.replyModel)
		s.AdvanceState(StateHandedOff)
		name = persona.Name
		p.metrics.HandoffStarted()
		log.Info().Str("call_id", callID).Str("persona", personaID).Msg("decoy_handoff")
		return nil
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// TerminateDecoy recalls the decoy, returning its engagement summary.
// The summary is packaged to the evidence sink before the decoy state
// is discarded.
func (p *Pipeline) TerminateDecoy(ctx context.Context, callID string) (*decoy.Summary, error) {
	if p.registry.Get(callID) == nil {
		return nil, ErrUnknownSession
	}

	var summary *decoy.Summary
	err := p.registry.WithSession(callID, func(s *Session) error {
		if s.Decoy == nil {
			return nil
		}
		sm := s.Decoy.Summarize()
		summary = &sm
		s.Decoy = nil
		s.AdvanceState(StateMonitoring)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, nil
	}

	log.Info().
		Str("call_id", callID).
		Int("turns", summary.TotalTurns).
		Int("entities", len(summary.ExtractedEntities)).
		Str("final_stage", string(summary.FinalStage)).
		Msg("decoy_terminated")

	p.packageEvidence(ctx, callID, summary)
	return summary, nil
}

// EndCall tears the session down. Idempotent; in-flight frames for the
// call discover the missing session and no-op.
func (p *Pipeline) EndCall(callID string) {
	p.registry.Disconnect(callID)
}

// PackageEvidence builds and stores the evidence package for a call
// from its persisted turns.
func (p *Pipeline) PackageEvidence(ctx context.Context, callID string, summary *decoy.Summary) (*evidence.Package, error) {
	if p.sink == nil {
		return evidence.BuildPackage(callID, nil, summary), nil
	}
	turns, err := p.sink.LoadTurns(ctx, callID)
	if err != nil {
		return nil, err
	}
	pkg := evidence.BuildPackage(callID, turns, summary)
	if err := p.sink.StorePackage(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

func (p *Pipeline) packageEvidence(ctx context.Context, callID string, summary *decoy.Summary) {
	if p.sink == nil {
		return
	}
	if _, err := p.PackageEvidence(ctx, callID, summary); err != nil {
		log.Warn().Err(err).Str("call_id", callID).Msg("evidence_package_failed")
	}
}

// storeTurn persists a turn when its score clears the low threshold.
// Sink failures are logged and dropped; persistence never stalls a call.
func (p *Pipeline) storeTurn(ctx context.Context, result *TurnResult, speaker string, score float64, level string) {
	if p.sink == nil || score <= p.scorer.Thresholds().Low {
		return
	}
	turn := &evidence.Turn{
		CallID:     result.CallID,
		Sequence:   result.Sequence,
		Speaker:    speaker,
		Transcript: result.Transcript,
		Score:      score,
		Level:      level,
		Entities:   result.Entities,
		Timestamp:  time.Now(),
	}
	if err := p.sink.StoreTurn(ctx, turn); err != nil {
		log.Warn().Err(err).Str("call_id", result.CallID).Msg("evidence_store_failed")
		return
	}
	p.metrics.EvidenceWrite()
}

func (p *Pipeline) storeDecoyReply(ctx context.Context, result *TurnResult, reply *decoy.Reply, score float64, level string) {
	if p.sink == nil || score <= p.scorer.Thresholds().Low {
		return
	}
	turn := &evidence.Turn{
		CallID:     result.CallID,
		Sequence:   result.Sequence,
		Speaker:    evidence.SpeakerDecoy,
		Transcript: reply.Text,
		Score:      score,
		Level:      level,
		Timestamp:  time.Now(),
	}
	if err := p.sink.StoreTurn(ctx, turn); err != nil {
		log.Warn().Err(err).Str("call_id", result.CallID).Msg("evidence_store_failed")
		return
	}
	p.metrics.EvidenceWrite()
}

// lastScore attributes decoy-phase turns to the session's last fused
// score. Decoys only run on escalated calls, so the floor is the high
// threshold; that keeps operator-initiated handoffs above the storage
// cutoff even before any turn was scored.
func (p *Pipeline) lastScore(callID string) (float64, string) {
	score := p.scorer.Thresholds().High
	_ = p.registry.WithSession(callID, func(s *Session) error {
		if s.ThreatScore > score {
			score = s.ThreatScore
		}
		return nil
	})
	return score, string(threat.LevelHigh)
}
