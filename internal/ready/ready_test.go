package ready

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_SettlesOnce(t *testing.T) {
	s := NewSignal()
	require.False(t, s.Settled())

	assert.True(t, s.Resolve())
	assert.False(t, s.Reject(errors.New("late")))
	assert.NoError(t, s.Err())
	assert.True(t, s.Settled())
}

func TestSignal_Reject(t *testing.T) {
	s := NewSignal()
	boom := errors.New("boom")

	assert.True(t, s.Reject(boom))
	assert.False(t, s.Resolve())
	assert.ErrorIs(t, s.Wait(context.Background()), boom)
}

func TestSignal_WaitContext(t *testing.T) {
	s := NewSignal()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestAll(t *testing.T) {
	a, b := NewSignal(), NewSignal()
	a.Resolve()
	b.Reject(ErrScriptLoad)

	assert.ErrorIs(t, All(context.Background(), a, b), ErrScriptLoad)
}

func TestAll_RejectsWhileOthersPending(t *testing.T) {
	pending, failed := NewSignal(), NewSignal()
	failed.Reject(ErrScriptTimeout)

	assert.ErrorIs(t, All(context.Background(), pending, failed), ErrScriptTimeout)
}

func TestAll_Resolved(t *testing.T) {
	a, b := NewSignal(), NewSignal()
	go a.Resolve()
	go b.Resolve()

	assert.NoError(t, All(context.Background(), a, b))
}

func TestDOM_AlreadyLoaded(t *testing.T) {
	s, _ := DOM(true)
	assert.True(t, s.Settled())
	assert.NoError(t, s.Err())
}

func TestDOM_ResolvesOnLoad(t *testing.T) {
	s, loaded := DOM(false)
	require.False(t, s.Settled())

	loaded()
	loaded()

	assert.NoError(t, s.Wait(context.Background()))
}

func TestScript_AlreadyPresent(t *testing.T) {
	el := NewElement()
	s := Script(func() bool { return true }, el, time.Hour)

	assert.True(t, s.Settled())
	assert.NoError(t, s.Err())
	assert.Equal(t, 0, el.Listeners(EventLoad))
}

func TestScript_LoadResolvesAndCleansUp(t *testing.T) {
	el := NewElement()
	var present atomic.Bool
	s := Script(present.Load, el, time.Hour)
	require.Equal(t, 1, el.Listeners(EventLoad))
	require.Equal(t, 1, el.Listeners(EventError))

	present.Store(true)
	el.Dispatch(EventLoad)

	assert.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, 0, el.Listeners(EventLoad))
	assert.Equal(t, 0, el.Listeners(EventError))
}

func TestScript_LoadWithoutWidgetIsError(t *testing.T) {
	el := NewElement()
	s := Script(func() bool { return false }, el, time.Hour)

	el.Dispatch(EventLoad)

	assert.ErrorIs(t, s.Wait(context.Background()), ErrScriptLoad)
	assert.Equal(t, 0, el.Listeners(EventLoad))
}

func TestScript_ErrorRejects(t *testing.T) {
	el := NewElement()
	s := Script(func() bool { return false }, el, time.Hour)

	el.Dispatch(EventError)

	assert.ErrorIs(t, s.Wait(context.Background()), ErrScriptLoad)
	assert.Equal(t, 0, el.Listeners(EventError))
	// Later events find nothing to call.
	assert.Equal(t, 0, el.Dispatch(EventLoad))
}

func TestScript_Timeout(t *testing.T) {
	el := NewElement()
	s := Script(func() bool { return false }, el, 20*time.Millisecond)

	err := s.Wait(context.Background())

	assert.ErrorIs(t, err, ErrScriptTimeout)
	assert.NotEqual(t, ErrScriptLoad.Error(), err.Error())
	assert.Equal(t, 0, el.Listeners(EventLoad))
	assert.Equal(t, 0, el.Listeners(EventError))
}

func TestScript_LoadAfterTimeoutIgnored(t *testing.T) {
	el := NewElement()
	s := Script(func() bool { return false }, el, 10*time.Millisecond)
	require.ErrorIs(t, s.Wait(context.Background()), ErrScriptTimeout)

	assert.Equal(t, 0, el.Dispatch(EventLoad))
	assert.ErrorIs(t, s.Err(), ErrScriptTimeout)
}

func TestElement_RemoveListener(t *testing.T) {
	el := NewElement()
	calls := 0
	remove := el.AddListener("click", func() { calls++ })

	el.Dispatch("click")
	remove()
	el.Dispatch("click")

	assert.Equal(t, 1, calls)
}
