package sessions

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// Repository is the persistence port for call sessions.
//
// Rules:
// - No business rules here; transition validation belongs to the Service.
// - Update must serialize concurrent mutations per session id: fn runs
//   against a fresh read and its result is written back atomically, so two
//   racing mutations can never both apply against the same stale status.
// - Sessions are never deleted; they are retained as call history.
// - Read queries (history, missed, recent) tolerate slightly stale reads.

type Repository interface {
	Create(ctx context.Context, s CallSession) error
	Get(ctx context.Context, sessionID string) (CallSession, error)

	// Update runs fn against the current record under per-session exclusion
	// and persists the mutated record if fn returns nil. An error from fn
	// aborts the write and is returned unchanged.
	Update(ctx context.Context, sessionID string, fn func(s *CallSession) error) (CallSession, error)

	FindActiveByCaller(ctx context.Context, callerID string, statuses []CallStatus) ([]CallSession, error)
	FindByParticipant(ctx context.Context, userID string, pageToken string, pageSize int) (Page, error)
	FindByParticipantAndStatus(ctx context.Context, userID string, status CallStatus) ([]CallSession, error)
	FindRecentByParticipant(ctx context.Context, userID string, since time.Time, limit int) ([]CallSession, error)
	FindStale(ctx context.Context, statuses []CallStatus, olderThan time.Time) ([]CallSession, error)
}

// Page is one slice of a participant's call history, newest first.
type Page struct {
	Sessions      []CallSession `json:"sessions"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// Page tokens are opaque keyset cursors: created_at plus session_id of the
// last row returned, so pagination stays stable while new calls are created.

func encodePageToken(createdAt time.Time, sessionID string) string {
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + sessionID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodePageToken(token string) (time.Time, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: malformed page token", ErrInvalidArgument)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: malformed page token", ErrInvalidArgument)
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: malformed page token", ErrInvalidArgument)
	}
	return ts, parts[1], nil
}
