package events

import (
	"context"
	"errors"
	"testing"

	"signaling-platform/internal/sessions"
)

func TestMockPublisher_RecordsAndResets(t *testing.T) {
	m := NewMockPublisher()

	err := m.PublishEvent(context.Background(), sessions.TopicCallEvents, sessions.Event{
		Type:    sessions.EventCallInitiated,
		Session: sessions.CallSession{SessionID: "s1"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := m.Published()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Topic != sessions.TopicCallEvents || got[0].Event.Session.SessionID != "s1" {
		t.Fatalf("unexpected event: %+v", got[0])
	}

	m.Reset()
	if len(m.Published()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}

func TestMockPublisher_SetError(t *testing.T) {
	m := NewMockPublisher()
	m.SetError(errors.New("broker down"))
	if err := m.PublishEvent(context.Background(), "t", sessions.Event{}); err == nil {
		t.Fatalf("expected injected error")
	}
	m.SetError(nil)
	if err := m.PublishEvent(context.Background(), "t", sessions.Event{}); err != nil {
		t.Fatalf("expected cleared error, got %v", err)
	}
}
