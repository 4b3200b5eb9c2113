package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Proxy is a local handle to a remote object.
type Proxy interface {
	// Identity returns the remote object identity.
	Identity() string
	// Transport returns the transport the proxy was resolved over.
	Transport() string
	// Invoke calls method on the remote object. params is encoded by the
	// transport; the result is decoded into reply when reply is non-nil.
	Invoke(ctx context.Context, method string, params any, reply any) error
}

// Resolver locates objects over one transport.
type Resolver interface {
	Resolve(ctx context.Context, ref Reference) (Proxy, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ref Reference) (Proxy, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, ref Reference) (Proxy, error) {
	return f(ctx, ref)
}

// ResolveObserver is notified after every resolution attempt.
type ResolveObserver func(ref Reference, elapsed time.Duration, err error)

// Broker turns reference strings into proxies using registered resolvers.
type Broker struct {
	mu         sync.RWMutex
	resolvers  map[string]Resolver
	dispatcher Dispatcher
	observer   ResolveObserver
	logger     *slog.Logger
}

// Option configures a Broker.
type Option func(*Broker)

// WithDispatcher delivers Future continuations through d.
func WithDispatcher(d Dispatcher) Option {
	return func(b *Broker) { b.dispatcher = d }
}

// WithObserver registers a callback run after each resolution.
func WithObserver(fn ResolveObserver) Option {
	return func(b *Broker) { b.observer = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) { b.logger = logger }
}

// New creates a Broker with no transports registered.
func New(opts ...Option) *Broker {
	b := &Broker{
		resolvers: make(map[string]Resolver),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Register binds a transport name to a resolver, replacing any previous one.
func (b *Broker) Register(transport string, r Resolver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolvers[transport] = r
}

// Transports returns the registered transport names, sorted.
func (b *Broker) Transports() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.resolvers))
	for name := range b.resolvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StringToProxy resolves the reference string s asynchronously.
// Every failure settles the Future with a *ResolutionError.
func (b *Broker) StringToProxy(ctx context.Context, s string) *Future {
	future := NewFuture(b.dispatcher)

	go func() {
		proxy, err := b.resolve(ctx, s)
		if err != nil {
			future.Reject(&ResolutionError{Name: s, Err: err})
			return
		}
		future.Resolve(proxy)
	}()

	return future
}

func (b *Broker) resolve(ctx context.Context, s string) (Proxy, error) {
	ref, err := ParseReference(s)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	resolver, ok := b.resolvers[ref.Transport]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, ref.Transport)
	}

	b.logger.Debug("resolving object", "identity", ref.Identity, "transport", ref.Transport)

	start := time.Now()
	proxy, err := resolver.Resolve(ctx, ref)
	elapsed := time.Since(start)

	if b.observer != nil {
		b.observer(ref, elapsed, err)
	}
	if err != nil {
		return nil, err
	}
	if proxy == nil {
		return nil, fmt.Errorf("%w: resolver returned no proxy", ErrObjectNotFound)
	}

	b.logger.Debug("object resolved", "identity", ref.Identity, "transport", ref.Transport, "elapsed", elapsed)
	return proxy, nil
}
