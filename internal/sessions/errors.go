package sessions

import "errors"

// Validation errors are returned synchronously to the operation caller and
// never retried internally. The HTTP layer owns the status-code mapping.
var (
	// ErrNotFound: no session with the given id.
	ErrNotFound = errors.New("call session not found")

	// ErrUnauthorized: acting user is not a legitimate participant for the
	// requested action.
	ErrUnauthorized = errors.New("user is not a participant of this call")

	// ErrActiveCallExists: caller already has a blocking in-progress session.
	ErrActiveCallExists = errors.New("caller already has an active call")

	// ErrInvalidStatus: requested transition is not valid from the session's
	// current status.
	ErrInvalidStatus = errors.New("invalid call status transition")

	// ErrInvalidArgument: malformed input (empty ids, unknown call type, ...).
	ErrInvalidArgument = errors.New("invalid argument")
)
