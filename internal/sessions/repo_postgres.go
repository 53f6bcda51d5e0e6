package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"signaling-platform/pkg/utils"
)

// PostgresRepo persists call sessions in a call_sessions table.
//
// Assumed schema:
//   call_sessions (
//     session_id TEXT PRIMARY KEY,
//     caller_id TEXT NOT NULL,
//     callee_id TEXT NOT NULL,
//     call_type TEXT NOT NULL,
//     status TEXT NOT NULL,
//     caller_sdp TEXT NOT NULL DEFAULT '',
//     callee_sdp TEXT NOT NULL DEFAULT '',
//     ice_candidates TEXT NOT NULL DEFAULT '',
//     started_at TIMESTAMPTZ,
//     ended_at TIMESTAMPTZ,
//     duration BIGINT,
//     rejection_reason TEXT NOT NULL DEFAULT '',
//     end_reason TEXT NOT NULL DEFAULT '',
//     created_at TIMESTAMPTZ NOT NULL,
//     updated_at TIMESTAMPTZ NOT NULL
//   )
// with indexes on (caller_id, status), (callee_id, created_at DESC) and
// (status, created_at) for the reclaimer sweep.
//
// Update serializes concurrent mutations per session via
// SELECT ... FOR UPDATE inside a transaction, so no transition is ever
// applied against a stale read of status.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const sessionColumns = `
session_id, caller_id, callee_id, call_type, status,
caller_sdp, callee_sdp, ice_candidates,
started_at, ended_at, duration,
rejection_reason, end_reason, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, s CallSession) error {
	const q = `
INSERT INTO call_sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err := r.db.ExecContext(ctx, q,
		s.SessionID, s.CallerID, s.CalleeID, s.CallType, s.Status,
		s.CallerSDP, s.CalleeSDP, s.ICECandidates,
		nullTime(s.StartedAt), nullTime(s.EndedAt), nullInt(s.DurationSeconds),
		s.RejectionReason, s.EndReason, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call session: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Get(ctx context.Context, sessionID string) (CallSession, error) {
	const q = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE session_id = $1`
	return scanSession(r.db.QueryRowContext(ctx, q, sessionID))
}

func (r *PostgresRepo) Update(ctx context.Context, sessionID string, fn func(s *CallSession) error) (CallSession, error) {
	var out CallSession

	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const lockQ = `SELECT ` + sessionColumns + ` FROM call_sessions WHERE session_id = $1 FOR UPDATE`
		s, err := scanSession(tx.QueryRowContext(ctx, lockQ, sessionID))
		if err != nil {
			return err
		}

		if err := fn(&s); err != nil {
			return err
		}

		const updQ = `
UPDATE call_sessions SET
  status = $2,
  caller_sdp = $3,
  callee_sdp = $4,
  ice_candidates = $5,
  started_at = $6,
  ended_at = $7,
  duration = $8,
  rejection_reason = $9,
  end_reason = $10,
  updated_at = $11
WHERE session_id = $1`
		if _, err := tx.ExecContext(ctx, updQ,
			s.SessionID, s.Status,
			s.CallerSDP, s.CalleeSDP, s.ICECandidates,
			nullTime(s.StartedAt), nullTime(s.EndedAt), nullInt(s.DurationSeconds),
			s.RejectionReason, s.EndReason, s.UpdatedAt,
		); err != nil {
			return fmt.Errorf("update call session: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}
	return out, nil
}

func (r *PostgresRepo) FindActiveByCaller(ctx context.Context, callerID string, statuses []CallStatus) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE caller_id = $1 AND status = ANY($2)
ORDER BY created_at DESC, session_id DESC`
	return r.querySessions(ctx, q, callerID, statusStrings(statuses))
}

func (r *PostgresRepo) FindByParticipant(ctx context.Context, userID string, pageToken string, pageSize int) (Page, error) {
	args := []any{userID, pageSize + 1}
	q := `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE (caller_id = $1 OR callee_id = $1)`

	if pageToken != "" {
		afterTs, afterID, err := decodePageToken(pageToken)
		if err != nil {
			return Page{}, err
		}
		q += ` AND (created_at, session_id) < ($3, $4)`
		args = append(args, afterTs, afterID)
	}
	q += `
ORDER BY created_at DESC, session_id DESC
LIMIT $2`

	rows, err := r.querySessions(ctx, q, args...)
	if err != nil {
		return Page{}, err
	}

	page := Page{}
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		page.NextPageToken = encodePageToken(last.CreatedAt, last.SessionID)
	}
	page.Sessions = rows
	return page, nil
}

func (r *PostgresRepo) FindByParticipantAndStatus(ctx context.Context, userID string, status CallStatus) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE (caller_id = $1 OR callee_id = $1) AND status = $2
ORDER BY created_at DESC, session_id DESC`
	return r.querySessions(ctx, q, userID, status)
}

func (r *PostgresRepo) FindRecentByParticipant(ctx context.Context, userID string, since time.Time, limit int) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE (caller_id = $1 OR callee_id = $1) AND created_at >= $2
ORDER BY created_at DESC, session_id DESC
LIMIT $3`
	return r.querySessions(ctx, q, userID, since, limit)
}

func (r *PostgresRepo) FindStale(ctx context.Context, statuses []CallStatus, olderThan time.Time) ([]CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE status = ANY($1) AND created_at < $2
ORDER BY created_at ASC`
	return r.querySessions(ctx, q, statusStrings(statuses), olderThan)
}

func (r *PostgresRepo) querySessions(ctx context.Context, q string, args ...any) ([]CallSession, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query call sessions: %w", err)
	}
	defer rows.Close()

	var out []CallSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var s CallSession
	var startedAt, endedAt sql.NullTime
	var duration sql.NullInt64

	err := row.Scan(
		&s.SessionID, &s.CallerID, &s.CalleeID, &s.CallType, &s.Status,
		&s.CallerSDP, &s.CalleeSDP, &s.ICECandidates,
		&startedAt, &endedAt, &duration,
		&s.RejectionReason, &s.EndReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallSession{}, ErrNotFound
		}
		return CallSession{}, fmt.Errorf("scan call session: %w", err)
	}

	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		s.EndedAt = &t
	}
	if duration.Valid {
		d := duration.Int64
		s.DurationSeconds = &d
	}
	return s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func statusStrings(statuses []CallStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
