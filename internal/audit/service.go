package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for transition records.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, t Transition) error
}

// Service records applied call transitions.
//
// IMPORTANT:
// - This log is internal-only ops data, not user-facing call history.
// - Callers should treat it as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidTransition = errors.New("audit: invalid transition record")

func (s *Service) Append(ctx context.Context, t Transition) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if t.SessionID == "" {
		return ErrInvalidTransition
	}
	if t.ToStatus == "" {
		return ErrInvalidTransition
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, t)
}

// LogTransition records one applied transition. Satisfies the coordinator's
// transition-log contract.
func (s *Service) LogTransition(ctx context.Context, sessionID, actorUserID, fromStatus, toStatus, reason string) error {
	return s.Append(ctx, Transition{
		SessionID:   sessionID,
		ActorUserID: actorUserID,
		FromStatus:  fromStatus,
		ToStatus:    toStatus,
		Reason:      reason,
	})
}
