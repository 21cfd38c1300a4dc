package memory

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Sink is durable storage that mirrors a ContextMemory.
type Sink interface {
	Append(ctx context.Context, f Fragment) error
	Snapshot(ctx context.Context) ([]Fragment, error)
	Clear(ctx context.Context) error
}

// ContextMemory is the ordered, append-only evidence log of a run. It is safe
// for concurrent use; appends are serialized so the log order and the sink
// order always match.
type ContextMemory struct {
	mu        sync.RWMutex
	fragments []Fragment
	sink      Sink
	logger    *zap.Logger
}

// Option configures a ContextMemory.
type Option func(*ContextMemory)

// WithSink mirrors appends and clears into s.
func WithSink(s Sink) Option {
	return func(m *ContextMemory) {
		m.sink = s
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(l *zap.Logger) Option {
	return func(m *ContextMemory) {
		m.logger = l
	}
}

// New creates an empty ContextMemory.
func New(opts ...Option) *ContextMemory {
	m := &ContextMemory{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load replaces the in-memory log with the sink's contents. It is a no-op
// without a sink.
func (m *ContextMemory) Load(ctx context.Context) error {
	if m.sink == nil {
		return nil
	}
	fragments, err := m.sink.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("load memory: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = fragments
	return nil
}

// Append adds f to the end of the log. A sink failure is logged and does not
// undo the in-memory append.
func (m *ContextMemory) Append(f Fragment) {
	f = f.clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fragments = append(m.fragments, f)

	if m.sink != nil {
		if err := m.sink.Append(context.Background(), f); err != nil {
			m.logger.Warn("persist fragment", zap.String("source", f.Source), zap.Error(err))
		}
	}
}

// Snapshot returns a copy of the log in append order.
func (m *ContextMemory) Snapshot() []Fragment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Fragment, len(m.fragments))
	for i, f := range m.fragments {
		out[i] = f.clone()
	}
	return out
}

// Len returns the number of fragments.
func (m *ContextMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.fragments)
}

// Clear empties the sink and then the log. If the sink cannot be cleared the
// log is left intact. Only an explicit user command should call it.
func (m *ContextMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink != nil {
		if err := m.sink.Clear(ctx); err != nil {
			return fmt.Errorf("clear memory: %w", err)
		}
	}
	m.fragments = nil
	return nil
}
