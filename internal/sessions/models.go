package sessions

import "time"

// CallSession is the signaling record for one call attempt between two users.
//
// Invariants:
// - SessionID is globally unique and immutable after creation.
// - CallerID != CalleeID.
// - Status only moves along the edges in transitions.go.
// - EndedAt is set exactly when Status becomes terminal.
// - DurationSeconds is derived (EndedAt - StartedAt) and only present when
//   both timestamps are.
//
// NOTE: SDP and ICE payloads are opaque blobs. This service relays them
// between peers and never parses them; media flows peer-to-peer once
// signaling completes.

type CallSession struct {
	SessionID string `json:"session_id" db:"session_id"`
	CallerID  string `json:"caller_id" db:"caller_id"`
	CalleeID  string `json:"callee_id" db:"callee_id"`

	CallType CallType   `json:"call_type" db:"call_type"`
	Status   CallStatus `json:"status" db:"status"`

	// CallerSDP is written once at initiation; CalleeSDP once at answer.
	CallerSDP string `json:"caller_sdp,omitempty" db:"caller_sdp"`
	CalleeSDP string `json:"callee_sdp,omitempty" db:"callee_sdp"`

	// ICECandidates may be overwritten by either side during negotiation.
	ICECandidates string `json:"ice_candidates,omitempty" db:"ice_candidates"`

	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	// DurationSeconds is seconds between StartedAt and EndedAt.
	// Keep as an int for JSON friendliness; store as INT in Postgres.
	DurationSeconds *int64 `json:"duration,omitempty" db:"duration"`

	RejectionReason string `json:"rejection_reason,omitempty" db:"rejection_reason"`
	EndReason       string `json:"end_reason,omitempty" db:"end_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasParticipant reports whether userID is either leg of the call.
func (s CallSession) HasParticipant(userID string) bool {
	return userID != "" && (userID == s.CallerID || userID == s.CalleeID)
}

// IsTerminal reports whether the session has reached a final status.
func (s CallSession) IsTerminal() bool {
	return IsTerminalStatus(s.Status)
}

type CallType string

const (
	CallTypeVoice CallType = "VOICE"
	CallTypeVideo CallType = "VIDEO"
)

func (t CallType) Valid() bool {
	switch t {
	case CallTypeVoice, CallTypeVideo:
		return true
	default:
		return false
	}
}

type CallStatus string

const (
	StatusInitiated CallStatus = "INITIATED"
	StatusRinging   CallStatus = "RINGING"
	StatusAnswered  CallStatus = "ANSWERED"
	StatusRejected  CallStatus = "REJECTED"
	StatusEnded     CallStatus = "ENDED"
	StatusFailed    CallStatus = "FAILED"
	StatusMissed    CallStatus = "MISSED"
)
