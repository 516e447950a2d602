package events

import (
	"sync"

	"yieldvault/core/types"
)

// Event represents a structured state change emitted by the vault engine.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines until the host installs a real sink.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MemoryEmitter records emitted events in order. It backs the RPC event feed
// and is handy in tests.
type MemoryEmitter struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (m *MemoryEmitter) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	m.mu.Lock()
	m.events = append(m.events, payload)
	m.mu.Unlock()
}

// Events returns a snapshot of everything emitted so far.
func (m *MemoryEmitter) Events() []*types.Event {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Event, len(m.events))
	copy(out, m.events)
	return out
}
