package events

import (
	"context"
	"sync"
)

// Publisher is the sink the core emits notifications into.
//
// Emissions are fail-open: services publish only after their state change has
// committed, and a publish failure never rolls the change back. Failures are
// logged and counted by the emitting service; publishers just report errors
// honestly.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, n Notification) error

func (f PublisherFunc) Publish(ctx context.Context, n Notification) error { return f(ctx, n) }

// MemorySink collects notifications in order. It is the default sink when no
// broker is configured and the workhorse of service tests.
type MemorySink struct {
	mu      sync.Mutex
	entries []Notification
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Publish(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, n)
	return nil
}

// All returns a snapshot of every published notification, in publish order.
func (s *MemorySink) All() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.entries))
	copy(out, s.entries)
	return out
}

// OfKind returns published notifications of one kind, in publish order.
func (s *MemorySink) OfKind(kind Kind) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Notification
	for _, n := range s.entries {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// Reset drops collected notifications.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
