// Package eventloop provides a single-goroutine task queue.
//
// Continuations from asynchronous operations are posted to a Loop so that
// they run one at a time, in order, on the same goroutine.
package eventloop

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Drain when the loop stops before draining.
var ErrStopped = errors.New("event loop stopped")

// Loop is a FIFO task queue served by one goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stopped bool

	stopOnce sync.Once
}

// New creates a Loop. Call Run to start serving tasks.
func New() *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start runs the loop in a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go l.Run(ctx)
}

// Run serves tasks until ctx is done or Stop is called.
// Tasks still queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	if l.running || l.stopped {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.mu.Unlock()

	defer close(l.doneCh)
	defer l.markStopped()

	for {
		for {
			task, ok := l.next()
			if !ok {
				break
			}
			task()
		}

		select {
		case <-ctx.Done():
			return
		case <-l.stopCh:
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
}

// Post queues task. It returns false if the loop has stopped.
func (l *Loop) Post(task func()) bool {
	if task == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Drain blocks until every task posted before the call has run.
func (l *Loop) Drain(ctx context.Context) error {
	marker := make(chan struct{})
	if !l.Post(func() { close(marker) }) {
		return ErrStopped
	}

	select {
	case <-marker:
		return nil
	case <-l.doneCh:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stop stops the loop and waits for the current task to finish.
// It is safe to call more than once, but not from inside a task.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })

	l.mu.Lock()
	running := l.running
	if !running {
		l.stopped = true
		l.queue = nil
	}
	l.mu.Unlock()

	if running {
		<-l.doneCh
	}
}
