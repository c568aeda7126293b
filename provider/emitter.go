package provider

import (
	"sync"

	"github.com/google/uuid"
)

// Emitter is a listener registry keyed by event name.
// Implementations embed it to get On and Emit.
type Emitter struct {
	mu        sync.Mutex
	listeners map[string]map[string]Listener // event -> listener id -> listener
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{listeners: make(map[string]map[string]Listener)}
}

// On implements Provider.
func (e *Emitter) On(event string, l Listener) func() {
	id := uuid.NewString()

	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[string]map[string]Listener)
	}
	byID, ok := e.listeners[event]
	if !ok {
		byID = make(map[string]Listener)
		e.listeners[event] = byID
	}
	byID[id] = l
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.listeners[event], id)
			if len(e.listeners[event]) == 0 {
				delete(e.listeners, event)
			}
		})
	}
}

// Emit delivers ev to every listener registered for ev.Name.
// Listeners run on the caller's goroutine, outside the registry lock.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	byID := e.listeners[ev.Name]
	ls := make([]Listener, 0, len(byID))
	for _, l := range byID {
		ls = append(ls, l)
	}
	e.mu.Unlock()

	for _, l := range ls {
		l(ev)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// RemoveAll drops every listener.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = make(map[string]map[string]Listener)
}
