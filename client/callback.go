package client

import (
	"fmt"
	"sync"

	"github.com/guseggert/obsws/client/protocol"
	"go.uber.org/multierr"
)

// Event is an event pushed by the server.
type Event struct {
	Type   string
	Intent protocol.Subs
	Data   Data
}

type HandlerFunc func(ev Event) error

// AllEvents is the event name of callbacks that receive every event.
const AllEvents = "*"

// Callback binds a handler to one event type.
// A registry identifies callbacks by pointer, so two callbacks for the same event are distinct.
type Callback struct {
	Event string
	Fn    HandlerFunc
}

// NewCallback returns a callback for the named event.
// The name may be given as "SceneCreated", "scene_created" or "on_scene_created".
func NewCallback(name string, fn HandlerFunc) *Callback {
	return &Callback{Event: EventName(name), Fn: fn}
}

// Registry holds the callbacks of an event client.
type Registry struct {
	mut       sync.RWMutex
	callbacks []*Callback
}

// On registers fn for the named event and returns the callback, for later deregistration.
func (r *Registry) On(name string, fn HandlerFunc) *Callback {
	cb := NewCallback(name, fn)
	r.Register(cb)
	return cb
}

// Register adds callbacks. Callbacks that are already registered are skipped.
func (r *Registry) Register(cbs ...*Callback) {
	r.mut.Lock()
	defer r.mut.Unlock()
	for _, cb := range cbs {
		if cb == nil || r.indexOf(cb) >= 0 {
			continue
		}
		cb.Event = EventName(cb.Event)
		r.callbacks = append(r.callbacks, cb)
	}
}

// Deregister removes callbacks. Unknown callbacks are ignored.
func (r *Registry) Deregister(cbs ...*Callback) {
	r.mut.Lock()
	defer r.mut.Unlock()
	for _, cb := range cbs {
		i := r.indexOf(cb)
		if i < 0 {
			continue
		}
		r.callbacks = append(r.callbacks[:i], r.callbacks[i+1:]...)
	}
}

func (r *Registry) indexOf(cb *Callback) int {
	for i, c := range r.callbacks {
		if c == cb {
			return i
		}
	}
	return -1
}

// Get returns the event name of each registered callback, in registration order.
func (r *Registry) Get() []string {
	r.mut.RLock()
	defer r.mut.RUnlock()
	names := make([]string, len(r.callbacks))
	for i, cb := range r.callbacks {
		names[i] = cb.Event
	}
	return names
}

func (r *Registry) Clear() {
	r.mut.Lock()
	r.callbacks = nil
	r.mut.Unlock()
}

// Dispatch calls every callback registered for ev.Type or AllEvents, in registration order.
// All callbacks run even if some fail. The returned error joins their errors, including recovered panics.
func (r *Registry) Dispatch(ev Event) error {
	r.mut.RLock()
	var matched []*Callback
	for _, cb := range r.callbacks {
		if cb.Event == ev.Type || cb.Event == AllEvents {
			matched = append(matched, cb)
		}
	}
	r.mut.RUnlock()

	var err error
	for _, cb := range matched {
		err = multierr.Append(err, call(cb, ev))
	}
	return err
}

func call(cb *Callback, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", ev.Type, r)
		}
	}()
	if cb.Fn == nil {
		return nil
	}
	if err := cb.Fn(ev); err != nil {
		return fmt.Errorf("%s handler: %w", ev.Type, err)
	}
	return nil
}
