package ready

import "sync"

// Event names dispatched on an Element.
const (
	EventLoad  = "load"
	EventError = "error"
)

// Element is a minimal event target standing in for a page element, such as
// the map widget's script tag. Listeners run synchronously on Dispatch.
type Element struct {
	mu        sync.Mutex
	next      int
	listeners map[string]map[int]func()
}

// NewElement creates an Element with no listeners.
func NewElement() *Element {
	return &Element{listeners: make(map[string]map[int]func())}
}

// AddListener registers fn for event and returns a function removing it.
func (e *Element) AddListener(event string, fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.next
	e.next++
	if e.listeners[event] == nil {
		e.listeners[event] = make(map[int]func())
	}
	e.listeners[event][id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners[event], id)
	}
}

// Dispatch runs every listener registered for event. It returns the number
// of listeners invoked.
func (e *Element) Dispatch(event string) int {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.listeners[event]))
	for _, fn := range e.listeners[event] {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Listeners returns the number of listeners registered for event.
func (e *Element) Listeners(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}
