package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakshakai/rakshak/pkg/telemetry"
)

func newTestRegistry(t *testing.T, idleTTL time.Duration) *Registry {
	t.Helper()
	r := NewRegistry(idleTTL, telemetry.New())
	t.Cleanup(r.Close)
	return r
}

func TestConnectReturnsSameSession(t *testing.T) {
	r := newTestRegistry(t, time.Minute)

	a := r.Connect("call-1")
	b := r.Connect("call-1")

	assert.Same(t, a, b)
	assert.Equal(t, 1, r.ActiveCount())
	assert.Equal(t, StateConnected, a.State)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	m := telemetry.New()
	r.metrics = m

	r.Connect("call-1")
	r.Disconnect("call-1")
	r.Disconnect("call-1")
	r.Disconnect("never-existed")

	assert.Equal(t, 0, r.ActiveCount())
	assert.Equal(t, int64(1), m.Snapshot().TotalDisconnects)
}

func TestWithSessionUnknownIDIsNoop(t *testing.T) {
	r := newTestRegistry(t, time.Minute)

	called := false
	err := r.WithSession("ghost", func(s *Session) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called)
}

func TestWithSessionSerializesMutators(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	r.Connect("call-1")

	const workers = 16
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				err := r.WithSession("call-1", func(s *Session) error {
					s.Sequence++
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	s := r.Get("call-1")
	require.NotNil(t, s)
	assert.Equal(t, workers*perWorker, s.Sequence)
}

func TestDifferentSessionsDoNotBlockEachOther(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	for i := 0; i < 8; i++ {
		r.Connect(fmt.Sprintf("call-%d", i))
	}

	release := make(chan struct{})
	holding := make(chan struct{})

	// Park a mutator inside call-0.
	go func() {
		_ = r.WithSession("call-0", func(s *Session) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	// Every other session must still be mutable.
	done := make(chan struct{})
	go func() {
		for i := 1; i < 8; i++ {
			_ = r.WithSession(fmt.Sprintf("call-%d", i), func(s *Session) error {
				s.Sequence++
				return nil
			})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("mutators for other sessions blocked behind call-0")
	}
	close(release)
}

func TestSerializationViolationTerminatesSession(t *testing.T) {
	r := newTestRegistry(t, time.Minute)
	s := r.Connect("call-1")

	// Simulate a mutator that bypassed WithSession.
	s.busy.Store(true)

	err := r.WithSession("call-1", func(*Session) error { return nil })
	assert.ErrorIs(t, err, ErrConcurrentMutation)
	assert.Nil(t, r.Get("call-1"), "violated session should be force-terminated")
}

func TestIdleSessionsAreReaped(t *testing.T) {
	r := newTestRegistry(t, 50*time.Millisecond)
	r.Connect("call-1")

	assert.Eventually(t, func() bool {
		return r.ActiveCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestActivityDefersReaping(t *testing.T) {
	r := newTestRegistry(t, 150*time.Millisecond)
	r.Connect("call-1")

	for i := 0; i < 5; i++ {
		time.Sleep(50 * time.Millisecond)
		require.NoError(t, r.WithSession("call-1", func(s *Session) error { return nil }))
	}
	assert.Equal(t, 1, r.ActiveCount())
}

func TestAdvanceStateIsMonotonic(t *testing.T) {
	s := newSession("call-1")

	s.AdvanceState(StateMonitoring)
	s.AdvanceState(StateEscalating)
	s.AdvanceState(StateMonitoring) // ignored, backward
	assert.Equal(t, StateEscalating, s.State)

	s.AdvanceState(StateHandedOff)
	assert.Equal(t, StateHandedOff, s.State)

	// The one sanctioned backward edge: decoy recall.
	s.AdvanceState(StateMonitoring)
	assert.Equal(t, StateMonitoring, s.State)

	s.AdvanceState(StateTerminated)
	s.AdvanceState(StateMonitoring)
	assert.Equal(t, StateTerminated, s.State)
}
