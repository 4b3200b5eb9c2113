package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/migui/internal/broker"
	"github.com/jmylchreest/migui/internal/eventloop"
	"github.com/jmylchreest/migui/internal/logging"
	"github.com/jmylchreest/migui/internal/metrics"
	"github.com/jmylchreest/migui/internal/scope"
)

// recordingLogger records calls in order.
type recordingLogger struct {
	mu       sync.Mutex
	calls    []string
	levels   []int
	failures []error
}

func (l *recordingLogger) SetLevel(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "set_level")
	l.levels = append(l.levels, n)
}

func (l *recordingLogger) OnFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "on_failure")
	l.failures = append(l.failures, err)
}

func (l *recordingLogger) snapshot() ([]string, []int, []error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...), append([]int(nil), l.levels...), append([]error(nil), l.failures...)
}

// stubConnection settles futures from the test.
type stubConnection struct {
	mu       sync.Mutex
	loop     *eventloop.Loop
	names    []string
	futures  []*broker.Future
	onCall   func()
	settleFn func(f *broker.Future)
}

func (c *stubConnection) StringToProxy(ctx context.Context, name string) *broker.Future {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onCall != nil {
		c.onCall()
	}
	var d broker.Dispatcher
	if c.loop != nil {
		d = c.loop
	}
	f := broker.NewFuture(d)
	c.names = append(c.names, name)
	c.futures = append(c.futures, f)
	if c.settleFn != nil {
		go c.settleFn(f)
	}
	return f
}

func (c *stubConnection) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.names...)
}

type stubProxy struct{ identity string }

func (p *stubProxy) Identity() string  { return p.identity }
func (p *stubProxy) Transport() string { return "ws" }
func (p *stubProxy) Invoke(ctx context.Context, method string, params any, reply any) error {
	return nil
}

func newLoop(t *testing.T) *eventloop.Loop {
	t.Helper()
	l := eventloop.New()
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func waitDone(t *testing.T, b *Bootstrapper) {
	t.Helper()
	select {
	case <-b.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bootstrap did not settle")
	}
}

func TestRun_AttachesProxy(t *testing.T) {
	loop := newLoop(t)
	root := scope.NewState()
	logger := &recordingLogger{}
	proxy := &stubProxy{identity: "DeviceManager"}
	conn := &stubConnection{
		loop:     loop,
		settleFn: func(f *broker.Future) { f.Resolve(proxy) },
	}

	b := New(logger, scope.Single(RootElementID, root), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))

	waitDone(t, b)
	require.NoError(t, loop.Drain(context.Background()))

	got, ok := root.Manager()
	require.True(t, ok)
	assert.Same(t, proxy, got)
	assert.Equal(t, PhaseAttached, b.Phase())
	assert.NoError(t, b.Wait(context.Background()))

	_, _, failures := logger.snapshot()
	assert.Empty(t, failures)
}

func TestRun_ManagerUnsetUntilLoopRuns(t *testing.T) {
	loop := eventloop.New()
	root := scope.NewState()
	conn := &stubConnection{loop: loop}

	b := New(&recordingLogger{}, scope.Single(RootElementID, root), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))
	assert.Equal(t, PhaseResolving, b.Phase())

	conn.futures[0].Resolve(&stubProxy{identity: "DeviceManager"})

	_, ok := root.Manager()
	assert.False(t, ok, "continuation must run on the loop")
	assert.Equal(t, 1, loop.Pending())

	loop.Start(context.Background())
	t.Cleanup(loop.Stop)
	require.NoError(t, loop.Drain(context.Background()))

	_, ok = root.Manager()
	assert.True(t, ok)
}

func TestRun_FailureReportedOnce(t *testing.T) {
	loop := newLoop(t)
	root := scope.NewState()
	logger := &recordingLogger{}
	resolveErr := errors.New("websocket: bad handshake")
	conn := &stubConnection{
		loop: loop,
		settleFn: func(f *broker.Future) {
			f.Reject(resolveErr)
			f.Reject(errors.New("second"))
			f.Resolve(&stubProxy{})
		},
	}

	b := New(logger, scope.Single(RootElementID, root), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))

	waitDone(t, b)
	require.NoError(t, loop.Drain(context.Background()))

	_, _, failures := logger.snapshot()
	require.Len(t, failures, 1)
	assert.Same(t, resolveErr, failures[0])

	_, ok := root.Manager()
	assert.False(t, ok)
	assert.Equal(t, PhaseFailed, b.Phase())
	assert.ErrorIs(t, b.Wait(context.Background()), resolveErr)
}

func TestRun_SetsLevelBeforeResolution(t *testing.T) {
	logger := &recordingLogger{}
	conn := &stubConnection{}
	conn.onCall = func() {
		calls, _, _ := logger.snapshot()
		assert.Equal(t, []string{"set_level"}, calls, "level must be set before the broker call")
	}

	b := New(logger, scope.Single(RootElementID, scope.NewState()), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))

	calls, levels, _ := logger.snapshot()
	assert.Equal(t, []string{"set_level"}, calls)
	assert.Equal(t, []int{logging.LevelInfo}, levels)
}

func TestRun_LookupErrorBeforeBrokerCall(t *testing.T) {
	logger := &recordingLogger{}
	conn := &stubConnection{}

	b := New(logger, scope.NewRegistry(), WithSlog(logging.NewNop().Logger()))
	err := b.Run(context.Background(), conn)

	var lookupErr *scope.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, RootElementID, lookupErr.ElementID)
	assert.Empty(t, conn.calls())
	assert.Equal(t, PhaseIdle, b.Phase())

	_, levels, failures := logger.snapshot()
	assert.Equal(t, []int{logging.LevelInfo}, levels)
	assert.Empty(t, failures)
}

func TestRun_UsesLiteralReference(t *testing.T) {
	t.Setenv("MIGUI_REFERENCE", "Other -w dbus")

	conn := &stubConnection{}
	b := New(&recordingLogger{}, scope.Single(RootElementID, scope.NewState()), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))

	assert.Equal(t, []string{"DeviceManager -w ws"}, conn.calls())
}

func TestRun_OnlyOnce(t *testing.T) {
	conn := &stubConnection{}
	b := New(&recordingLogger{}, scope.Single(RootElementID, scope.NewState()), WithSlog(logging.NewNop().Logger()))

	require.NoError(t, b.Run(context.Background(), conn))
	assert.ErrorIs(t, b.Run(context.Background(), conn), ErrAlreadyStarted)
	assert.Len(t, conn.calls(), 1)
}

func TestRun_RootAlreadyBoundFails(t *testing.T) {
	root := scope.NewState()
	require.NoError(t, root.SetManager(&stubProxy{identity: "existing"}))

	logger := &recordingLogger{}
	conn := &stubConnection{settleFn: func(f *broker.Future) { f.Resolve(&stubProxy{identity: "new"}) }}

	b := New(logger, scope.Single(RootElementID, root), WithSlog(logging.NewNop().Logger()))
	require.NoError(t, b.Run(context.Background(), conn))
	waitDone(t, b)

	assert.Equal(t, PhaseFailed, b.Phase())
	assert.ErrorIs(t, b.Err(), scope.ErrAlreadyBound)

	got, _ := root.Manager()
	assert.Equal(t, "existing", got.Identity())
}

func TestRun_Metrics(t *testing.T) {
	rec := metrics.NewRecorder()
	conn := &stubConnection{settleFn: func(f *broker.Future) { f.Resolve(&stubProxy{identity: "DeviceManager"}) }}

	b := New(&recordingLogger{}, scope.Single(RootElementID, scope.NewState()),
		WithSlog(logging.NewNop().Logger()), WithMetrics(rec))
	require.NoError(t, b.Run(context.Background(), conn))
	waitDone(t, b)

	assert.Equal(t, 1, testutil.CollectAndCount(rec.Registry(), "migui_bootstrap_total"))
}

func TestWait_ContextCancelled(t *testing.T) {
	b := New(&recordingLogger{}, scope.NewRegistry(), WithSlog(logging.NewNop().Logger()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Wait(ctx), context.DeadlineExceeded)
}

func TestPhase(t *testing.T) {
	tests := []struct {
		phase    Phase
		name     string
		terminal bool
	}{
		{PhaseIdle, "idle", false},
		{PhaseResolving, "resolving", false},
		{PhaseAttached, "attached", true},
		{PhaseFailed, "failed", true},
		{Phase(9), "unknown", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.phase.String())
			assert.Equal(t, tt.terminal, tt.phase.Terminal())
		})
	}
}

func TestTransitions(t *testing.T) {
	phases := []Phase{PhaseIdle, PhaseResolving, PhaseAttached, PhaseFailed}
	allowed := map[[2]Phase]bool{
		{PhaseIdle, PhaseResolving}:     true,
		{PhaseResolving, PhaseAttached}: true,
		{PhaseResolving, PhaseFailed}:   true,
	}

	for _, from := range phases {
		for _, to := range phases {
			assert.Equal(t, allowed[[2]Phase{from, to}], isAllowedTransition(from, to), "%s -> %s", from, to)
		}
	}
}
