// browser/dom/events.go
package dom

import (
	"golang.org/x/net/html"
)

// EventType names a pointer event delivered by the host.
type EventType string

const (
	// EventPointerOver fires when the pointer enters a node.
	EventPointerOver EventType = "mouseover"
	// EventPointerOut fires when the pointer leaves a node.
	EventPointerOut EventType = "mouseout"
	// EventClick fires on a confirm action.
	EventClick EventType = "click"
)

// Event is a single input event travelling through the document dispatcher.
type Event struct {
	Type   EventType
	Target *html.Node
	// ClientX and ClientY are viewport coordinates of the pointer, when the host knows them.
	ClientX, ClientY float64

	defaultPrevented bool
	propagationStop  bool
}

// NewEvent builds an event aimed at target.
func NewEvent(t EventType, target *html.Node) *Event {
	return &Event{Type: t, Target: target}
}

// PreventDefault suppresses the host's default action for this event.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation prevents listeners later in the dispatch order from observing the event.
func (e *Event) StopPropagation() { e.propagationStop = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// PropagationStopped reports whether a listener called StopPropagation.
func (e *Event) PropagationStopped() bool { return e.propagationStop }

// Listener handles a dispatched event.
type Listener func(*Event)

// ListenerID identifies a registration so it can be removed.
type ListenerID uint64

type registration struct {
	id       ListenerID
	typ      EventType
	capture  bool
	listener Listener
}

// AddEventListener registers l at document level. Capturing listeners run before every
// non-capturing listener, in registration order, regardless of when they were added.
func (d *Document) AddEventListener(t EventType, l Listener, capture bool) (ListenerID, error) {
	if l == nil {
		return 0, ErrNilListener
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrDocumentClosed
	}
	d.nextID++
	d.listeners = append(d.listeners, registration{id: d.nextID, typ: t, capture: capture, listener: l})
	return d.nextID, nil
}

// RemoveEventListener drops a registration. Unknown IDs are ignored.
func (d *Document) RemoveEventListener(id ListenerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.listeners[:0]
	for _, r := range d.listeners {
		if r.id != id {
			out = append(out, r)
		}
	}
	d.listeners = out
}

// ListenerCount returns the number of live registrations.
func (d *Document) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// DispatchEvent delivers ev to the capture phase and then to the bubble phase.
// Listeners removed during dispatch still see the event if they were registered when it started.
// The return value is false when the default action was prevented.
func (d *Document) DispatchEvent(ev *Event) bool {
	d.mu.Lock()
	snapshot := make([]registration, len(d.listeners))
	copy(snapshot, d.listeners)
	d.mu.Unlock()

	for _, phase := range []bool{true, false} {
		for _, r := range snapshot {
			if r.capture != phase || r.typ != ev.Type {
				continue
			}
			r.listener(ev)
			if ev.propagationStop {
				return !ev.defaultPrevented
			}
		}
	}
	return !ev.defaultPrevented
}
