package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends transition records to the call_transitions table.
// INSERT-only; no update or delete statements exist on purpose.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, t Transition) error {
	const q = `
INSERT INTO call_transitions (id, session_id, actor_user_id, from_status, to_status, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := r.db.ExecContext(ctx, q,
		t.ID, t.SessionID, t.ActorUserID, t.FromStatus, t.ToStatus, t.Reason, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call transition: %w", err)
	}
	return nil
}
