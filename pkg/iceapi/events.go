package iceapi

import "sync"

// Event names broadcast by the client. They replace the browser-global
// events the portal used to notify UI collaborators without coupling.
type Event string

const (
	// EventSessionExpired fires when a 401 invalidates the stored credential.
	EventSessionExpired Event = "auth:sessionExpired"
	// EventLogout fires on an explicit Logout call.
	EventLogout Event = "auth:logout"
)

// Events is a process-local broadcaster. Subscribers are invoked
// synchronously on the emitting goroutine.
type Events struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

// NewEvents returns an empty broadcaster.
func NewEvents() *Events {
	return &Events{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every broadcast event and returns a cancel
// function removing the subscription.
func (e *Events) Subscribe(fn func(Event)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

func (e *Events) emit(ev Event) {
	e.mu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
