package broker

import (
	"context"
	"sync"
)

// Dispatcher runs continuations on a single execution context.
// Post returns false when the task was not accepted.
type Dispatcher interface {
	Post(task func()) bool
}

// Future is the pending result of a proxy resolution.
// It settles exactly once, either with a Proxy or with an error.
type Future struct {
	mu         sync.Mutex
	done       chan struct{}
	settled    bool
	proxy      Proxy
	err        error
	dispatcher Dispatcher
	callbacks  []continuation
}

type continuation struct {
	onProxy func(Proxy)
	onError func(error)
}

// NewFuture returns an unsettled Future. When dispatcher is non-nil,
// continuations registered with Then run through it.
func NewFuture(dispatcher Dispatcher) *Future {
	return &Future{
		done:       make(chan struct{}),
		dispatcher: dispatcher,
	}
}

// Resolve settles the future with p. It reports whether this call settled it.
func (f *Future) Resolve(p Proxy) bool {
	return f.settle(p, nil)
}

// Reject settles the future with err. It reports whether this call settled it.
func (f *Future) Reject(err error) bool {
	return f.settle(nil, err)
}

func (f *Future) settle(p Proxy, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.proxy = p
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, c := range callbacks {
		f.fire(c)
	}
	return true
}

// Then registers continuations for the two outcomes. Exactly one of them runs,
// once. Either may be nil. Registering after settlement still fires.
func (f *Future) Then(onProxy func(Proxy), onError func(error)) {
	c := continuation{onProxy: onProxy, onError: onError}

	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, c)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.fire(c)
}

func (f *Future) fire(c continuation) {
	run := func() {
		if f.err != nil {
			if c.onError != nil {
				c.onError(f.err)
			}
			return
		}
		if c.onProxy != nil {
			c.onProxy(f.proxy)
		}
	}

	if f.dispatcher != nil && f.dispatcher.Post(run) {
		return
	}
	run()
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
// Cancelling ctx does not cancel the resolution itself.
func (f *Future) Await(ctx context.Context) (Proxy, error) {
	select {
	case <-f.done:
		return f.proxy, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
