package sessions

import (
	"context"
	"time"
)

// Side-effect collaborators. Both are best-effort from the Service's point
// of view: they run off the write path, their failures are logged and
// dropped, and a failed dispatch never rolls back a persisted transition.

// TopicCallEvents is the topic lifecycle events are published on.
const TopicCallEvents = "call-events"

type EventType string

const (
	EventCallInitiated EventType = "CALL_INITIATED"
	EventCallAnswered  EventType = "CALL_ANSWERED"
	EventCallRejected  EventType = "CALL_REJECTED"
	EventCallEnded     EventType = "CALL_ENDED"
	EventCallFailed    EventType = "CALL_FAILED"
	EventCallMissed    EventType = "CALL_MISSED"
)

// Event is a lifecycle event payload: the event tag plus a snapshot of the
// session as of the transition.
type Event struct {
	Type       EventType   `json:"event_type"`
	Session    CallSession `json:"session"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Publisher emits lifecycle events for downstream consumers (analytics,
// real-time channels). At-most-once: no internal retry.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, event Event) error
}

// IncomingCallNotice alerts a callee that a call is being placed to them.
type IncomingCallNotice struct {
	Type      string    `json:"type"` // always "CALL_INCOMING"
	CalleeID  string    `json:"callee_id"`
	CallerID  string    `json:"caller_id"`
	CallType  CallType  `json:"call_type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CallEndedNotice alerts the other party that a call finished.
type CallEndedNotice struct {
	Type      string    `json:"type"` // always "CALL_ENDED"
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Dispatcher delivers user-facing call alerts (push, SMS, in-app).
type Dispatcher interface {
	NotifyIncomingCall(ctx context.Context, n IncomingCallNotice) error
	NotifyCallEnded(ctx context.Context, n CallEndedNotice) error
}

// TransitionLog records applied transitions for internal ops visibility.
// Best-effort, append-only.
type TransitionLog interface {
	LogTransition(ctx context.Context, sessionID, actorUserID, fromStatus, toStatus, reason string) error
}
