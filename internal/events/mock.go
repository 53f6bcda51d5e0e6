package events

import (
	"context"
	"sync"

	"signaling-platform/internal/sessions"
)

// Published records a single published event.
type Published struct {
	Topic string
	Event sessions.Event
}

// MockPublisher records all publishes for test assertions.
type MockPublisher struct {
	mu        sync.Mutex
	published []Published
	err       error // if set, PublishEvent returns this error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishEvent(_ context.Context, topic string, event sessions.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, Published{Topic: topic, Event: event})
	return nil
}

// Published returns a copy of all recorded events.
func (m *MockPublisher) Published() []Published {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Published, len(m.published))
	copy(out, m.published)
	return out
}

// Reset clears all recorded events.
func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SetError causes all subsequent PublishEvent calls to return err.
// Pass nil to clear.
func (m *MockPublisher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
