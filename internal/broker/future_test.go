package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProxy struct {
	identity string
}

func (p *testProxy) Identity() string  { return p.identity }
func (p *testProxy) Transport() string { return "test" }
func (p *testProxy) Invoke(ctx context.Context, method string, params any, reply any) error {
	return nil
}

// queueDispatcher records tasks instead of running them.
type queueDispatcher struct {
	mu     sync.Mutex
	tasks  []func()
	reject bool
}

func (d *queueDispatcher) Post(task func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reject {
		return false
	}
	d.tasks = append(d.tasks, task)
	return true
}

func (d *queueDispatcher) drain() {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

func TestFuture_ResolveOnce(t *testing.T) {
	f := NewFuture(nil)
	p := &testProxy{identity: "a"}

	assert.True(t, f.Resolve(p))
	assert.False(t, f.Resolve(&testProxy{identity: "b"}))
	assert.False(t, f.Reject(errors.New("late")))

	got, err := f.Await(context.Background())
	require.NoError(t, err)
	assert.Same(t, p, got)
	select {
	case <-f.Done():
	default:
		t.Fatal("future not settled")
	}
}

func TestFuture_ThenFiresExactlyOneBranch(t *testing.T) {
	boom := errors.New("boom")
	f := NewFuture(nil)

	var proxies, failures atomic.Int32
	var got error
	f.Then(func(Proxy) { proxies.Add(1) }, func(err error) {
		failures.Add(1)
		got = err
	})

	f.Reject(boom)
	f.Resolve(&testProxy{})

	assert.Equal(t, int32(0), proxies.Load())
	assert.Equal(t, int32(1), failures.Load())
	assert.Equal(t, boom, got)
}

func TestFuture_ThenAfterSettlement(t *testing.T) {
	f := NewFuture(nil)
	p := &testProxy{identity: "late"}
	f.Resolve(p)

	var got Proxy
	f.Then(func(proxy Proxy) { got = proxy }, nil)
	assert.Same(t, p, got)
}

func TestFuture_ContinuationsUseDispatcher(t *testing.T) {
	d := &queueDispatcher{}
	f := NewFuture(d)

	var called bool
	f.Then(func(Proxy) { called = true }, nil)
	f.Resolve(&testProxy{})

	assert.False(t, called, "continuation must wait for the dispatcher")
	d.drain()
	assert.True(t, called)
}

func TestFuture_RejectedDispatcherRunsInline(t *testing.T) {
	d := &queueDispatcher{reject: true}
	f := NewFuture(d)

	var called bool
	f.Then(nil, func(error) { called = true })
	f.Reject(errors.New("x"))

	assert.True(t, called)
}

func TestFuture_AwaitContextCancelled(t *testing.T) {
	f := NewFuture(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-f.Done():
		t.Fatal("future settled without a result")
	default:
	}
}

func TestFuture_NilBranchesAreSkipped(t *testing.T) {
	f := NewFuture(nil)
	f.Then(nil, nil)
	assert.NotPanics(t, func() { f.Reject(errors.New("x")) })
}
