package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/migui/internal/broker"
	"github.com/jmylchreest/migui/internal/logging"
	"github.com/jmylchreest/migui/internal/metrics"
	"github.com/jmylchreest/migui/internal/scope"
)

const (
	// RootElementID identifies the root state container.
	RootElementID = "MiguiApp"
	// ManagerReference is the broker reference of the device manager.
	ManagerReference = "DeviceManager -w ws"
	// LogLevel is the threshold applied on every run.
	LogLevel = logging.LevelInfo
)

// ErrAlreadyStarted is returned by Run on a Bootstrapper that left Idle.
var ErrAlreadyStarted = errors.New("bootstrap already started")

// Logger is the logging collaborator.
type Logger interface {
	SetLevel(n int)
	OnFailure(err error)
}

// Connection resolves reference strings to proxies.
type Connection interface {
	StringToProxy(ctx context.Context, name string) *broker.Future
}

// Locator finds the root state for an element id.
type Locator interface {
	StateForElement(id string) (*scope.State, error)
}

// Bootstrapper attaches the device manager proxy to the root state.
type Bootstrapper struct {
	logger  Logger
	scopes  Locator
	slog    *slog.Logger
	metrics *metrics.Recorder

	mu    sync.Mutex
	phase Phase
	err   error
	done  chan struct{}
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithSlog sets the logger used for lifecycle messages.
func WithSlog(logger *slog.Logger) Option {
	return func(b *Bootstrapper) { b.slog = logger }
}

// WithMetrics records phases and outcomes on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(b *Bootstrapper) { b.metrics = r }
}

// New creates a Bootstrapper in PhaseIdle.
func New(logger Logger, scopes Locator, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		logger: logger,
		scopes: scopes,
		phase:  PhaseIdle,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.slog == nil {
		b.slog = slog.Default()
	}
	return b
}

// Run starts the bootstrap. It returns once the resolution request is
// issued; the outcome is applied asynchronously through the connection's
// future. A missing root state is returned as *scope.LookupError before
// the broker is contacted, and the Bootstrapper stays idle.
func (b *Bootstrapper) Run(ctx context.Context, conn Connection) error {
	b.mu.Lock()
	if b.phase != PhaseIdle {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.mu.Unlock()

	b.logger.SetLevel(LogLevel)

	root, err := b.scopes.StateForElement(RootElementID)
	if err != nil {
		b.slog.Error("root state not found", "element", RootElementID, "error", err)
		if b.metrics != nil {
			b.metrics.ObserveOutcome(metrics.OutcomeLookup)
		}
		return err
	}

	if err := b.transition(PhaseResolving, nil); err != nil {
		return ErrAlreadyStarted
	}

	b.slog.Info("resolving device manager", "reference", ManagerReference)

	conn.StringToProxy(ctx, ManagerReference).Then(
		func(proxy broker.Proxy) {
			b.attach(root, proxy)
		},
		func(err error) {
			b.fail(err)
		},
	)

	return nil
}

func (b *Bootstrapper) attach(root *scope.State, proxy broker.Proxy) {
	if err := root.SetManager(proxy); err != nil {
		b.fail(err)
		return
	}
	if err := b.transition(PhaseAttached, nil); err != nil {
		b.slog.Warn("ignoring late resolution", "error", err)
		return
	}
	defer b.finish()

	b.slog.Info("device manager attached", "identity", proxy.Identity(), "transport", proxy.Transport())
	if b.metrics != nil {
		b.metrics.ObserveOutcome(metrics.OutcomeAttached)
	}
}

func (b *Bootstrapper) fail(err error) {
	if terr := b.transition(PhaseFailed, err); terr != nil {
		b.slog.Warn("ignoring late failure", "error", terr)
		return
	}
	defer b.finish()

	b.logger.OnFailure(err)
	if b.metrics != nil {
		b.metrics.ObserveOutcome(metrics.OutcomeFailed)
	}
}

func (b *Bootstrapper) transition(to Phase, err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !isAllowedTransition(b.phase, to) {
		return transitionError(b.phase, to)
	}
	b.phase = to
	b.err = err
	if b.metrics != nil {
		b.metrics.SetPhase(int(to))
	}
	return nil
}

// finish releases waiters once the terminal side effects are done.
func (b *Bootstrapper) finish() {
	close(b.done)
}

// Phase returns the current phase.
func (b *Bootstrapper) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Done is closed when a terminal phase is reached.
func (b *Bootstrapper) Done() <-chan struct{} {
	return b.done
}

// Err returns the resolution error once failed.
func (b *Bootstrapper) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Wait blocks until a terminal phase or ctx is done. It returns nil when
// attached and the resolution error when failed.
func (b *Bootstrapper) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return b.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
