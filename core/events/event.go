package events

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

// Buffer collects events in emission order until they are flushed. The runtime
// hands one to each call and only forwards the contents once the call commits.
type Buffer struct {
	events []Event
}

// NewBuffer returns an empty event buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Flush forwards the buffered events to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if b == nil {
		return
	}
	if dst != nil {
		for _, evt := range b.events {
			dst.Emit(evt)
		}
	}
	b.events = nil
}

// Reset drops all buffered events.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.events = nil
}
