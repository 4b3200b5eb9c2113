package scope

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProxy struct{ id string }

func (p *fakeProxy) Identity() string  { return p.id }
func (p *fakeProxy) Transport() string { return "fake" }
func (p *fakeProxy) Invoke(ctx context.Context, method string, params any, reply any) error {
	return nil
}

func TestState_SetManagerOnce(t *testing.T) {
	s := NewState()
	defer s.Close()

	_, ok := s.Manager()
	assert.False(t, ok)

	first := &fakeProxy{id: "first"}
	require.NoError(t, s.SetManager(first))

	err := s.SetManager(&fakeProxy{id: "second"})
	assert.ErrorIs(t, err, ErrAlreadyBound)

	got, ok := s.Manager()
	require.True(t, ok)
	assert.Same(t, first, got)
}

func TestState_SetManagerNil(t *testing.T) {
	s := NewState()
	assert.ErrorIs(t, s.SetManager(nil), ErrNilValue)
	_, ok := s.Manager()
	assert.False(t, ok)
}

func TestState_ConcurrentSetManager(t *testing.T) {
	s := NewState()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.SetManager(&fakeProxy{id: "p"}) == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestState_Fields(t *testing.T) {
	s := NewState()
	require.NoError(t, s.Set("title", "Migui"))
	require.NoError(t, s.Set("devices", []string{"a"}))

	v, ok := s.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Migui", v)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"devices", "title"}, s.Fields())

	require.NoError(t, s.Set(ManagerField, &fakeProxy{id: "m"}))
	assert.Equal(t, []string{"devices", "manager", "title"}, s.Fields())

	v, ok = s.Get(ManagerField)
	require.True(t, ok)
	assert.Equal(t, "m", v.(*fakeProxy).Identity())
}

func TestState_SetManagerFieldRequiresProxy(t *testing.T) {
	s := NewState()
	assert.ErrorIs(t, s.Set(ManagerField, "not a proxy"), ErrNilValue)
}

func TestState_Subscribe(t *testing.T) {
	s := NewState()
	ch := s.Subscribe()

	p := &fakeProxy{id: "DeviceManager"}
	require.NoError(t, s.SetManager(p))

	event := <-ch
	assert.Equal(t, ManagerField, event.Field)
	assert.Same(t, p, event.Value)

	s.Close()
	_, open := <-ch
	assert.False(t, open)
}

func TestState_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewState()
	defer s.Close()
	_ = s.Subscribe()

	for i := 0; i < 100; i++ {
		require.NoError(t, s.Set("counter", i))
	}
}

func TestState_Closed(t *testing.T) {
	s := NewState()
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Set("x", 1), ErrStateClosed)
	assert.ErrorIs(t, s.SetManager(&fakeProxy{}), ErrStateClosed)

	_, open := <-s.Subscribe()
	assert.False(t, open)
}
