package events

import (
	"sync"

	"bondfarm/core/types"
)

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer holds events raised inside a state transaction until the
// transaction commits. Discarded transactions simply drop their buffer.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Events returns a copy of the buffered events in emission order.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards buffered events to target and empties the buffer.
func (b *Buffer) Flush(target Emitter) {
	if b == nil {
		return
	}
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()
	if target == nil {
		return
	}
	for _, evt := range pending {
		target.Emit(evt)
	}
}

// Recorder keeps the most recent events for inspection by operators.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []*types.Event
}

// NewRecorder returns a recorder retaining at most limit events.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 256
	}
	return &Recorder{limit: limit}
}

// Emit implements the Emitter interface. Events that can render themselves as
// *types.Event are retained; others are ignored.
func (r *Recorder) Emit(evt Event) {
	renderable, ok := evt.(interface{ Event() *types.Event })
	if r == nil || !ok {
		return
	}
	rendered := renderable.Event()
	if rendered == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, rendered)
	if overflow := len(r.events) - r.limit; overflow > 0 {
		r.events = append([]*types.Event(nil), r.events[overflow:]...)
	}
}

// Recent returns the retained events, oldest first.
func (r *Recorder) Recent() []*types.Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*types.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Fanout emits to every wrapped emitter in order.
type Fanout []Emitter

// Emit implements the Emitter interface.
func (f Fanout) Emit(evt Event) {
	for _, target := range f {
		if target != nil {
			target.Emit(evt)
		}
	}
}
