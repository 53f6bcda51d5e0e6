package audit

import "time"

// Transition is an immutable, append-only record of one applied call state
// transition.
//
// Invariants:
// - Records are never updated or deleted.
// - Capture is best-effort; do not block call flows on audit failures.
//
// Storage recommendation (Postgres):
// - Table call_transitions with an INSERT-only policy.
// - Optional: partition by time for retention.

type Transition struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`

	// ActorUserID is the user driving the transition. System-driven
	// transitions carry a fixed actor tag (e.g. "reclaimer") instead.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	// FromStatus is empty for session creation.
	FromStatus string `json:"from_status,omitempty" db:"from_status"`
	ToStatus   string `json:"to_status" db:"to_status"`

	// Reason is the caller-supplied end/rejection reason, when any.
	Reason string `json:"reason,omitempty" db:"reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
