// Package ready provides one-shot readiness signals for external prerequisites
// of the park map: the page having loaded, and the mapping widget script
// having loaded.
package ready

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ScriptTimeout is how long Script waits for the widget script before giving up.
const ScriptTimeout = 5 * time.Second

var (
	// ErrScriptLoad is returned when the widget script fails to load.
	ErrScriptLoad = errors.New("Failed to load the map widget. Try reloading the page.")

	// ErrScriptTimeout is returned when the widget script does not load in time.
	ErrScriptTimeout = errors.New("The map widget took too long to respond. Try reloading the page or visiting again later.")
)

// Signal is a one-shot notification that settles exactly once, either
// resolved or rejected with an error.
type Signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewSignal creates an unsettled Signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Resolve settles the signal successfully. It reports whether this call
// settled it.
func (s *Signal) Resolve() bool {
	return s.settle(nil)
}

// Reject settles the signal with err. It reports whether this call settled it.
func (s *Signal) Reject(err error) bool {
	return s.settle(err)
}

func (s *Signal) settle(err error) bool {
	settled := false
	s.once.Do(func() {
		s.err = err
		close(s.done)
		settled = true
	})
	return settled
}

// Done is closed once the signal settles.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Err returns the rejection error, or nil if unsettled or resolved.
func (s *Signal) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Settled reports whether the signal has settled.
func (s *Signal) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the signal settles or ctx is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// All waits for every signal. It returns as soon as any signal rejects, even
// while others are still pending.
func All(ctx context.Context, signals ...*Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(signals))
	for _, s := range signals {
		go func() { errs <- s.Wait(ctx) }()
	}
	for range signals {
		if err := <-errs; err != nil {
			return err
		}
	}
	return nil
}

// DOM returns a signal for page readiness. If loaded is true the signal is
// already resolved; otherwise calling the returned function resolves it.
// It never rejects.
func DOM(loaded bool) (*Signal, func()) {
	s := NewSignal()
	if loaded {
		s.Resolve()
	}
	return s, func() { s.Resolve() }
}

// Script returns a signal for the mapping widget. It resolves immediately if
// present reports the widget namespace exists. Otherwise it listens for
// "load" and "error" on el and races them against timeout; the first to
// fire settles the signal and every listener and the timer are removed.
// A "load" after which present still reports false counts as a load error.
func Script(present func() bool, el *Element, timeout time.Duration) *Signal {
	s := NewSignal()
	if present() {
		s.Resolve()
		return s
	}

	var (
		mu      sync.Mutex
		cleared bool
		removes []func()
		timer   *time.Timer
	)
	clearListeners := func() {
		mu.Lock()
		defer mu.Unlock()
		if cleared {
			return
		}
		cleared = true
		if timer != nil {
			timer.Stop()
		}
		for _, remove := range removes {
			remove()
		}
	}
	fail := func(err error) {
		clearListeners()
		s.Reject(err)
	}

	mu.Lock()
	removes = append(removes,
		el.AddListener(EventLoad, func() {
			if !present() {
				fail(ErrScriptLoad)
				return
			}
			clearListeners()
			s.Resolve()
		}),
		el.AddListener(EventError, func() { fail(ErrScriptLoad) }),
	)
	timer = time.AfterFunc(timeout, func() { fail(ErrScriptTimeout) })
	mu.Unlock()

	return s
}
