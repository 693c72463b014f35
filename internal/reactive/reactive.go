// Package reactive provides push-based observable values for the park view model.
//
// A [Value] holds mutable state, a [List] holds an append-only sequence, and a
// [Computed] derives a value from other sources and recomputes eagerly whenever
// one of them changes. Dependencies are declared explicitly, either at
// construction or later via [Computed.DependOn].
//
// Nothing here is goroutine-safe. Callers serialize access themselves (the
// session event loop does this for the view model).
package reactive

// Source is anything that can notify subscribers of a change.
type Source interface {
	Subscribe(fn func()) (unsubscribe func())
}

// subscribers is an ordered set of change callbacks.
type subscribers struct {
	next int
	fns  []subscriber
}

type subscriber struct {
	id int
	fn func()
}

func (s *subscribers) add(fn func()) func() {
	id := s.next
	s.next++
	s.fns = append(s.fns, subscriber{id: id, fn: fn})
	return func() {
		for i, sub := range s.fns {
			if sub.id == id {
				s.fns = append(s.fns[:i:i], s.fns[i+1:]...)
				return
			}
		}
	}
}

// notify calls a snapshot of the callbacks so subscribers may unsubscribe
// while being notified.
func (s *subscribers) notify() {
	fns := make([]subscriber, len(s.fns))
	copy(fns, s.fns)
	for _, sub := range fns {
		sub.fn()
	}
}

func (s *subscribers) count() int {
	return len(s.fns)
}

// Value is an observable mutable value.
type Value[T any] struct {
	v     T
	equal func(a, b T) bool
	subs  subscribers
}

// NewValue creates a Value that compares with ==.
func NewValue[T comparable](v T) *Value[T] {
	return &Value[T]{v: v, equal: func(a, b T) bool { return a == b }}
}

// NewValueFunc creates a Value with a custom equality function.
func NewValueFunc[T any](v T, equal func(a, b T) bool) *Value[T] {
	return &Value[T]{v: v, equal: equal}
}

// Get returns the current value.
func (x *Value[T]) Get() T {
	return x.v
}

// Set stores v and notifies subscribers if it differs from the current value.
// It reports whether a change happened.
func (x *Value[T]) Set(v T) bool {
	if x.equal != nil && x.equal(x.v, v) {
		return false
	}
	x.v = v
	x.subs.notify()
	return true
}

// Subscribe registers fn to run after every change.
func (x *Value[T]) Subscribe(fn func()) func() {
	return x.subs.add(fn)
}

// Watch registers fn to run with the new value after every change.
func (x *Value[T]) Watch(fn func(T)) func() {
	return x.subs.add(func() { fn(x.v) })
}

// Subscribers returns the number of registered callbacks.
func (x *Value[T]) Subscribers() int {
	return x.subs.count()
}

// List is an observable append-only sequence.
type List[T any] struct {
	items []T
	subs  subscribers
}

// NewList creates an empty List.
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// Items returns a copy of the elements in insertion order.
func (l *List[T]) Items() []T {
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	return len(l.items)
}

// Push appends items and notifies subscribers once.
func (l *List[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	l.items = append(l.items, items...)
	l.subs.notify()
}

// Subscribe registers fn to run after every append.
func (l *List[T]) Subscribe(fn func()) func() {
	return l.subs.add(fn)
}

// Computed is a derived value recomputed whenever a dependency changes.
type Computed[T any] struct {
	v       T
	compute func() T
	equal   func(a, b T) bool
	subs    subscribers
	unsubs  []func()
}

// NewComputed evaluates compute once and re-evaluates it on every change of
// deps. Subscribers are notified only when equal reports a difference; a nil
// equal notifies on every recompute.
func NewComputed[T any](compute func() T, equal func(a, b T) bool, deps ...Source) *Computed[T] {
	c := &Computed[T]{compute: compute, equal: equal}
	c.v = compute()
	c.DependOn(deps...)
	return c
}

// DependOn adds dependencies and recomputes immediately if any were added.
func (c *Computed[T]) DependOn(deps ...Source) {
	if len(deps) == 0 {
		return
	}
	for _, d := range deps {
		c.unsubs = append(c.unsubs, d.Subscribe(c.recompute))
	}
	c.recompute()
}

// Get returns the most recently computed value.
func (c *Computed[T]) Get() T {
	return c.v
}

// Subscribe registers fn to run after the value changes.
func (c *Computed[T]) Subscribe(fn func()) func() {
	return c.subs.add(fn)
}

// Watch registers fn to run with the new value after every change.
func (c *Computed[T]) Watch(fn func(T)) func() {
	return c.subs.add(func() { fn(c.v) })
}

// Dispose detaches the Computed from all of its dependencies.
func (c *Computed[T]) Dispose() {
	for _, u := range c.unsubs {
		u()
	}
	c.unsubs = nil
}

func (c *Computed[T]) recompute() {
	next := c.compute()
	if c.equal != nil && c.equal(c.v, next) {
		return
	}
	c.v = next
	c.subs.notify()
}
