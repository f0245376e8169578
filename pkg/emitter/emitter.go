// Package emitter provides a small named-event listener registry.
//
// Listeners run synchronously on the goroutine that calls Emit, in the order
// they were registered. The registry lock is never held while a listener
// runs, so listeners may register or remove listeners themselves.
package emitter

import "sync"

// Listener receives the payload of an emitted event.
type Listener func(data any)

// ListenerID identifies a registered listener for Off.
type ListenerID uint64

type entry struct {
	id   ListenerID
	fn   Listener
	once bool
}

// Emitter is a registry of listeners keyed by event name.
// The zero value is ready to use.
type Emitter struct {
	mu        sync.Mutex
	nextID    ListenerID
	listeners map[string][]entry
}

// On registers fn for every emission of event.
func (e *Emitter) On(event string, fn Listener) ListenerID {
	return e.add(event, fn, false)
}

// Once registers fn for the next emission of event only.
func (e *Emitter) Once(event string, fn Listener) ListenerID {
	return e.add(event, fn, true)
}

func (e *Emitter) add(event string, fn Listener, once bool) ListenerID {
	if fn == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string][]entry)
	}
	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], entry{id: id, fn: fn, once: once})
	return id
}

// Off removes the listeners with the given ids from event.
// Without ids, every listener of event is removed.
func (e *Emitter) Off(event string, ids ...ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(ids) == 0 {
		delete(e.listeners, event)
		return
	}

	current := e.listeners[event]
	kept := current[:0:0]
	for _, l := range current {
		if !containsID(ids, l.id) {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, event)
		return
	}
	e.listeners[event] = kept
}

// Emit calls the listeners of event with data and returns how many ran.
func (e *Emitter) Emit(event string, data any) int {
	e.mu.Lock()
	current := e.listeners[event]
	if len(current) == 0 {
		e.mu.Unlock()
		return 0
	}

	snapshot := make([]entry, len(current))
	copy(snapshot, current)

	// Drop once-listeners before running anything so a re-entrant Emit
	// cannot fire them twice.
	kept := current[:0:0]
	for _, l := range current {
		if !l.once {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, event)
	} else {
		e.listeners[event] = kept
	}
	e.mu.Unlock()

	for _, l := range snapshot {
		l.fn(data)
	}
	return len(snapshot)
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// Clear removes every listener.
func (e *Emitter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = nil
}

func containsID(ids []ListenerID, id ListenerID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
