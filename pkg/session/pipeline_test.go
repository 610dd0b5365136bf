package session

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshakai/rakshak/pkg/audio"
	"github.com/rakshakai/rakshak/pkg/evidence"
	"github.com/rakshakai/rakshak/pkg/telemetry"
	"github.com/rakshakai/rakshak/pkg/threat"
)

const testSampleRate = 16000

// speechFrame returns a 20ms 440Hz tone loud enough to pass the energy
// fallback VAD.
func speechFrame() []byte {
	samples := testSampleRate * 20 / 1000
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
		pcm[2*i] = byte(v)
		pcm[2*i+1] = byte(v >> 8)
	}
	return pcm
}

func silentFrame() []byte {
	samples := testSampleRate * 20 / 1000
	return make([]byte, samples*2)
}

type fixedTranscriber struct{ text string }

func (f fixedTranscriber) Transcribe(context.Context, []byte, int) (string, error) {
	return f.text, nil
}

type memorySink struct {
	mu       sync.Mutex
	turns    map[string][]evidence.Turn
	packages map[string]*evidence.Package
}

func newMemorySink() *memorySink {
	return &memorySink{
		turns:    make(map[string][]evidence.Turn),
		packages: make(map[string]*evidence.Package),
	}
}

func (m *memorySink) StoreTurn(_ context.Context, turn *evidence.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[turn.CallID] = append(m.turns[turn.CallID], *turn)
	return nil
}

func (m *memorySink) LoadTurns(_ context.Context, callID string) ([]evidence.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]evidence.Turn(nil), m.turns[callID]...), nil
}

func (m *memorySink) StorePackage(_ context.Context, pkg *evidence.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[pkg.CallID] = pkg
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) storedTurns(callID string) []evidence.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]evidence.Turn(nil), m.turns[callID]...)
}

type pipelineFixture struct {
	registry *Registry
	sink     *memorySink
	pipeline *Pipeline
}

func newPipelineFixture(t *testing.T, transcript string) *pipelineFixture {
	t.Helper()
	registry := NewRegistry(time.Minute, telemetry.New())
	t.Cleanup(registry.Close)

	sink := newMemorySink()
	p := NewPipeline(PipelineConfig{
		Registry:       registry,
		Gate:           audio.NewGate(testSampleRate, nil),
		Scorer:         threat.NewScorer(threat.DefaultThresholds(), nil),
		Transcriber:    fixedTranscriber{text: transcript},
		Sink:           sink,
		Metrics:        telemetry.New(),
		DefaultPersona: "cautious_professional",
		SeedFn:         func() int64 { return 42 },
	})
	return &pipelineFixture{registry: registry, sink: sink, pipeline: p}
}

// blockingClassifier parks inside Classify until released, signalling
// entry so tests can observe in-flight scoring.
type blockingClassifier struct {
	entered sync.Once
	inside  chan struct{}
	release chan struct{}
}

func newBlockingClassifier() *blockingClassifier {
	return &blockingClassifier{inside: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingClassifier) IsReady() bool { return true }

func (b *blockingClassifier) Classify(ctx context.Context, _ string) (*threat.ClassifierResult, error) {
	b.entered.Do(func() { close(b.inside) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &threat.ClassifierResult{Score: 0.1, Label: "benign"}, nil
}

func TestScoringDoesNotHoldSessionLock(t *testing.T) {
	registry := NewRegistry(time.Minute, telemetry.New())
	t.Cleanup(registry.Close)

	clf := newBlockingClassifier()
	p := NewPipeline(PipelineConfig{
		Registry:    registry,
		Gate:        audio.NewGate(testSampleRate, nil),
		Scorer:      threat.NewScorer(threat.DefaultThresholds(), clf),
		Transcriber: fixedTranscriber{text: "hello there"},
		Metrics:     telemetry.New(),
		SeedFn:      func() int64 { return 42 },
	})
	registry.Connect("call-1")

	frameDone := make(chan error, 1)
	go func() {
		_, err := p.ProcessFrame(context.Background(), "call-1", 1, speechFrame())
		frameDone <- err
	}()

	select {
	case <-clf.inside:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier never entered")
	}

	// With the classifier parked mid-turn, the session must still be
	// reachable for control operations like handoff and terminate.
	start := time.Now()
	require.NoError(t, registry.WithSession("call-1", func(*Session) error { return nil }))
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"session lock held across classifier call")

	close(clf.release)
	require.NoError(t, <-frameDone)
}

func TestNonSpeechFrameShortCircuits(t *testing.T) {
	f := newPipelineFixture(t, "should never be used")
	f.registry.Connect("call-1")

	res, err := f.pipeline.ProcessFrame(context.Background(), "call-1", 1, silentFrame())
	require.NoError(t, err)

	assert.False(t, res.Speech)
	assert.Empty(t, res.Transcript)
	assert.Nil(t, res.Assessment)
	assert.Empty(t, f.sink.storedTurns("call-1"))

	s := f.registry.Get("call-1")
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Context.Turns(), "silence must not reach the scorer")
}

func TestMalformedFrameRejected(t *testing.T) {
	f := newPipelineFixture(t, "hello")
	f.registry.Connect("call-1")

	_, err := f.pipeline.ProcessFrame(context.Background(), "call-1", 1, []byte{0x01})
	assert.ErrorIs(t, err, audio.ErrMalformedFrame)

	_, err = f.pipeline.ProcessFrame(context.Background(), "call-1", 2, make([]byte, 100))
	assert.ErrorIs(t, err, audio.ErrInvalidFrameDuration)

	// The session is untouched by its own bad frames.
	assert.NotNil(t, f.registry.Get("call-1"))
}

func TestBenignTurnContinuesMonitoring(t *testing.T) {
	f := newPipelineFixture(t, "your order has shipped, delivery in 30 minutes")
	f.registry.Connect("call-1")

	res, err := f.pipeline.ProcessFrame(context.Background(), "call-1", 1, speechFrame())
	require.NoError(t, err)

	require.NotNil(t, res.Assessment)
	assert.Equal(t, threat.LevelSafe, res.Assessment.Level)
	assert.Equal(t, threat.ActionContinueMonitoring, res.Assessment.Action)
	assert.Empty(t, f.sink.storedTurns("call-1"), "safe turns are never persisted")
}

func TestScamTurnScoresAndStores(t *testing.T) {
	f := newPipelineFixture(t, "you will be arrested, share the otp immediately and transfer the money")
	f.registry.Connect("call-1")

	res, err := f.pipeline.ProcessFrame(context.Background(), "call-1", 1, speechFrame())
	require.NoError(t, err)

	require.NotNil(t, res.Assessment)
	assert.True(t, res.Assessment.Score > threat.DefaultThresholds().Low)

	stored := f.sink.storedTurns("call-1")
	require.Len(t, stored, 1)
	assert.Equal(t, evidence.SpeakerCaller, stored[0].Speaker)
	assert.Equal(t, res.Transcript, stored[0].Transcript)
}

func TestSustainedThreatForcesHandoff(t *testing.T) {
	transcript := "listen carefully, don't tell anyone: you will be arrested, share the otp immediately and transfer the money"
	f := newPipelineFixture(t, transcript)
	f.registry.Connect("call-1")

	var last *TurnResult
	for i := 1; i <= 3; i++ {
		res, err := f.pipeline.ProcessFrame(context.Background(), "call-1", i, speechFrame())
		require.NoError(t, err)
		require.NotNil(t, res.Assessment)
		last = res
	}

	assert.Contains(t, last.Assessment.Flags, threat.FlagEscalation)
	assert.True(t, last.Handoff)
	assert.Equal(t, "Suresh Patel", last.Persona)

	s := f.registry.Get("call-1")
	require.NotNil(t, s)
	assert.Equal(t, StateHandedOff, s.State)
	assert.True(t, s.DecoyActive())
}

func TestDecoyRoutingAfterHandoff(t *testing.T) {
	f := newPipelineFixture(t, "share the otp right now")
	f.registry.Connect("call-1")

	name, err := f.pipeline.HandoffToDecoy(context.Background(), "call-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Suresh Patel", name)

	// Expired context: the turn still routes to the decoy and counts,
	// but the reply is dropped mid-delay.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.pipeline.ProcessFrame(ctx, "call-1", 2, speechFrame())
	require.NoError(t, err)
	assert.Nil(t, res.Assessment, "decoy turns are not re-scored")
	assert.Nil(t, res.DecoyReply)

	summary, err := f.pipeline.TerminateDecoy(context.Background(), "call-1")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.TotalTurns)
}

func TestDecoyReplyIsDeliveredAndStored(t *testing.T) {
	f := newPipelineFixture(t, "share the otp right now")
	f.registry.Connect("call-1")

	_, err := f.pipeline.HandoffToDecoy(context.Background(), "call-1", "")
	require.NoError(t, err)

	res, err := f.pipeline.ProcessFrame(context.Background(), "call-1", 2, speechFrame())
	require.NoError(t, err)
	require.NotNil(t, res.DecoyReply)
	assert.NotEmpty(t, res.DecoyReply.Text)

	stored := f.sink.storedTurns("call-1")
	require.Len(t, stored, 2)
	assert.Equal(t, evidence.SpeakerCaller, stored[0].Speaker)
	assert.Equal(t, evidence.SpeakerDecoy, stored[1].Speaker)
	assert.Equal(t, res.DecoyReply.Text, stored[1].Transcript)
}

func TestHandoffErrors(t *testing.T) {
	f := newPipelineFixture(t, "hello")

	_, err := f.pipeline.HandoffToDecoy(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, ErrUnknownSession)

	f.registry.Connect("call-1")
	_, err = f.pipeline.HandoffToDecoy(context.Background(), "call-1", "no_such_persona")
	assert.Error(t, err)
}

func TestHandoffIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t, "hello")
	f.registry.Connect("call-1")

	a, err := f.pipeline.HandoffToDecoy(context.Background(), "call-1", "confused_senior")
	require.NoError(t, err)
	b, err := f.pipeline.HandoffToDecoy(context.Background(), "call-1", "trusting_homemaker")
	require.NoError(t, err)

	// Second handoff keeps the active persona.
	assert.Equal(t, "Ramesh Kumar", a)
	assert.Equal(t, "Ramesh Kumar", b)
}

func TestTerminateDecoyPackagesEvidence(t *testing.T) {
	f := newPipelineFixture(t, "share the otp right now")
	f.registry.Connect("call-1")

	_, err := f.pipeline.HandoffToDecoy(context.Background(), "call-1", "")
	require.NoError(t, err)
	_, err = f.pipeline.ProcessFrame(context.Background(), "call-1", 2, speechFrame())
	require.NoError(t, err)

	summary, err := f.pipeline.TerminateDecoy(context.Background(), "call-1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	f.sink.mu.Lock()
	pkg := f.sink.packages["call-1"]
	f.sink.mu.Unlock()
	require.NotNil(t, pkg)
	assert.True(t, evidence.VerifyChain(pkg))
	assert.Len(t, pkg.Turns, 2)

	// Session is recalled to monitoring, not terminated.
	s := f.registry.Get("call-1")
	require.NotNil(t, s)
	assert.Equal(t, StateMonitoring, s.State)
	assert.False(t, s.DecoyActive())
}

func TestTerminateDecoyWithoutDecoy(t *testing.T) {
	f := newPipelineFixture(t, "hello")

	_, err := f.pipeline.TerminateDecoy(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownSession)

	f.registry.Connect("call-1")
	summary, err := f.pipeline.TerminateDecoy(context.Background(), "call-1")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestFrameForEndedCallIsDropped(t *testing.T) {
	f := newPipelineFixture(t, "you will be arrested, share the otp immediately")

	res, err := f.pipeline.ProcessFrame(context.Background(), "ghost", 1, speechFrame())
	require.NoError(t, err)
	assert.True(t, res.Speech)
	assert.Nil(t, res.Assessment)
	assert.Empty(t, f.sink.storedTurns("ghost"))
}

func TestEndCallIsIdempotent(t *testing.T) {
	f := newPipelineFixture(t, "hello")
	f.registry.Connect("call-1")

	f.pipeline.EndCall("call-1")
	f.pipeline.EndCall("call-1")
	assert.Nil(t, f.registry.Get("call-1"))
}
