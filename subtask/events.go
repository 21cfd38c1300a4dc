package subtask

import (
	"sync"
	"time"
)

// EventKind identifies the type of engine event.
type EventKind string

const (
	EventRunStart        EventKind = "run_start"
	EventRunEnd          EventKind = "run_end"
	EventDepthChanged    EventKind = "depth_changed"
	EventDispatchStart   EventKind = "dispatch_start"
	EventDispatchEnd     EventKind = "dispatch_end"
	EventDeclined        EventKind = "declined"
	EventEvidence        EventKind = "evidence"
	EventFailed          EventKind = "failed"
	EventDepthLimit      EventKind = "depth_limit"
	EventRevisitLimit    EventKind = "revisit_limit"
	EventLoopDetected    EventKind = "loop_detected"
	EventBudgetExhausted EventKind = "budget_exhausted"
)

// Event is a typed event emitted by the engine.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	RunID     string                 `json:"run_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventEmitter delivers engine events to the host application via a buffered
// channel. Events are dropped rather than block the engine.
type EventEmitter struct {
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

// NewEventEmitter creates an EventEmitter. A non-positive bufferSize means
// 256.
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit sends an event. It is a no-op on a nil or closed emitter.
func (e *EventEmitter) Emit(runID string, kind EventKind, data map[string]interface{}) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- Event{Kind: kind, Timestamp: time.Now(), RunID: runID, Data: data}:
	default:
	}
}

// Events returns the read-only event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
