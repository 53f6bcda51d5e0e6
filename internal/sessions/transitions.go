package sessions

// The allowed-transition table is the single source of truth for the call
// state machine. Every mutating operation validates against it; nothing
// else in the codebase encodes edge knowledge.
//
// INITIATED is the sole initial status. REJECTED, ENDED, FAILED and MISSED
// are terminal (no outgoing edges).

var allowedTransitions = map[CallStatus]map[CallStatus]struct{}{
	StatusInitiated: {
		StatusRinging: {},
		StatusFailed:  {},
	},
	StatusRinging: {
		StatusAnswered: {},
		StatusRejected: {},
		StatusMissed:   {},
		StatusFailed:   {},
	},
	StatusAnswered: {
		StatusEnded:  {},
		StatusFailed: {},
	},
	// Terminal statuses have no outgoing edges.
	StatusRejected: {},
	StatusEnded:    {},
	StatusFailed:   {},
	StatusMissed:   {},
}

// ValidStatus reports whether s is a known call status.
func ValidStatus(s CallStatus) bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransition reports whether the edge from -> to is allowed.
func CanTransition(from, to CallStatus) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// IsTerminalStatus reports whether s is a final status.
func IsTerminalStatus(s CallStatus) bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// ActiveStatuses are the non-terminal pre-answer statuses. They block a
// caller from initiating another call and are the reclaimer's sweep target.
func ActiveStatuses() []CallStatus {
	return []CallStatus{StatusInitiated, StatusRinging}
}
