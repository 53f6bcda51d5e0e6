package sessions

import (
	"context"
	"sync"
	"time"

	"signaling-platform/pkg/logger"

	"github.com/google/uuid"
)

// Service is the call lifecycle coordinator. It validates and applies
// state transitions, enforces the one-active-call-per-caller rule,
// computes derived fields, and triggers notification/event side effects.
//
// Concurrency: all mutations go through Repository.Update, which serializes
// read-validate-write per session id. The reclaimer uses the same path, so
// a session answered concurrently with a sweep is never marked FAILED.
//
// Side effects never block the write path and never surface as operation
// errors; they are fired after the committed write and logged on failure.

type Service struct {
	repo       Repository
	dispatcher Dispatcher
	publisher  Publisher
	transLog   TransitionLog

	clock             func() time.Time
	historyPageSize   int
	recentLimit       int
	sideEffectTimeout time.Duration

	effects sync.WaitGroup
}

type Option func(*Service)

// WithClock sets the time source. Override in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithTransitionLog enables best-effort transition auditing.
func WithTransitionLog(l TransitionLog) Option {
	return func(s *Service) { s.transLog = l }
}

// WithHistoryPageSize sets the page size for History.
func WithHistoryPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyPageSize = n
		}
	}
}

func NewService(repo Repository, dispatcher Dispatcher, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		repo:              repo,
		dispatcher:        dispatcher,
		publisher:         publisher,
		clock:             time.Now,
		historyPageSize:   20,
		recentLimit:       50,
		sideEffectTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitiateCall creates a new session in INITIATED, alerts the callee and
// publishes CALL_INITIATED. A caller with a session still in INITIATED or
// RINGING is rejected with ErrActiveCallExists.
func (s *Service) InitiateCall(ctx context.Context, callerID, calleeID string, callType CallType, callerSDP string) (CallSession, error) {
	if callerID == "" || calleeID == "" || callerSDP == "" {
		return CallSession{}, ErrInvalidArgument
	}
	if callerID == calleeID {
		return CallSession{}, ErrInvalidArgument
	}
	if !callType.Valid() {
		return CallSession{}, ErrInvalidArgument
	}

	active, err := s.repo.FindActiveByCaller(ctx, callerID, ActiveStatuses())
	if err != nil {
		return CallSession{}, err
	}
	if len(active) > 0 {
		return CallSession{}, ErrActiveCallExists
	}

	now := s.clock().UTC()
	session := CallSession{
		SessionID: uuid.NewString(),
		CallerID:  callerID,
		CalleeID:  calleeID,
		CallType:  callType,
		Status:    StatusInitiated,
		CallerSDP: callerSDP,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return CallSession{}, err
	}

	s.logTransition(ctx, session.SessionID, callerID, "", string(StatusInitiated), "")
	s.notify(ctx, "notify_incoming_call", func(ctx context.Context) error {
		return s.dispatcher.NotifyIncomingCall(ctx, IncomingCallNotice{
			Type:      "CALL_INCOMING",
			CalleeID:  calleeID,
			CallerID:  callerID,
			CallType:  callType,
			SessionID: session.SessionID,
			Timestamp: now,
		})
	})
	s.publishEvent(ctx, EventCallInitiated, session)

	return session, nil
}

// AnswerCall moves a RINGING session to ANSWERED with the callee's SDP.
func (s *Service) AnswerCall(ctx context.Context, sessionID, calleeID, calleeSDP, iceCandidates string) (CallSession, error) {
	if sessionID == "" || calleeID == "" || calleeSDP == "" {
		return CallSession{}, ErrInvalidArgument
	}

	var from CallStatus
	updated, err := s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if sess.CalleeID != calleeID {
			return ErrUnauthorized
		}
		if !CanTransition(sess.Status, StatusAnswered) {
			return ErrInvalidStatus
		}
		from = sess.Status
		now := s.clock().UTC()
		sess.Status = StatusAnswered
		sess.CalleeSDP = calleeSDP
		if iceCandidates != "" {
			sess.ICECandidates = iceCandidates
		}
		sess.StartedAt = &now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	s.logTransition(ctx, sessionID, calleeID, string(from), string(StatusAnswered), "")
	s.publishEvent(ctx, EventCallAnswered, updated)
	return updated, nil
}

// RejectCall moves a RINGING session to REJECTED.
func (s *Service) RejectCall(ctx context.Context, sessionID, calleeID, reason string) (CallSession, error) {
	if sessionID == "" || calleeID == "" {
		return CallSession{}, ErrInvalidArgument
	}

	var from CallStatus
	updated, err := s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if sess.CalleeID != calleeID {
			return ErrUnauthorized
		}
		if !CanTransition(sess.Status, StatusRejected) {
			return ErrInvalidStatus
		}
		from = sess.Status
		now := s.clock().UTC()
		sess.Status = StatusRejected
		sess.RejectionReason = reason
		sess.EndedAt = &now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	s.logTransition(ctx, sessionID, calleeID, string(from), string(StatusRejected), reason)
	s.publishEvent(ctx, EventCallRejected, updated)
	return updated, nil
}

// EndCall terminates an ANSWERED call from either side, computes the
// duration and alerts the other party.
func (s *Service) EndCall(ctx context.Context, sessionID, userID, reason string) (CallSession, error) {
	if sessionID == "" || userID == "" {
		return CallSession{}, ErrInvalidArgument
	}

	var from CallStatus
	updated, err := s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if !sess.HasParticipant(userID) {
			return ErrUnauthorized
		}
		if !CanTransition(sess.Status, StatusEnded) {
			return ErrInvalidStatus
		}
		from = sess.Status
		now := s.clock().UTC()
		if sess.StartedAt != nil {
			d := int64(now.Sub(*sess.StartedAt) / time.Second)
			sess.DurationSeconds = &d
		}
		sess.Status = StatusEnded
		sess.EndReason = reason
		sess.EndedAt = &now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	other := updated.CalleeID
	if userID == updated.CalleeID {
		other = updated.CallerID
	}

	s.logTransition(ctx, sessionID, userID, string(from), string(StatusEnded), reason)
	s.notify(ctx, "notify_call_ended", func(ctx context.Context) error {
		return s.dispatcher.NotifyCallEnded(ctx, CallEndedNotice{
			Type:      "CALL_ENDED",
			UserID:    other,
			SessionID: sessionID,
			Reason:    reason,
			Timestamp: s.clock().UTC(),
		})
	})
	s.publishEvent(ctx, EventCallEnded, updated)
	return updated, nil
}

// UpdateStatus is the generic transition entry point used by the transport
// layer, e.g. INITIATED -> RINGING once the callee's client was reached, or
// RINGING -> MISSED when the callee never picked up. Every edge is checked
// against the transition table.
func (s *Service) UpdateStatus(ctx context.Context, sessionID string, newStatus CallStatus) (CallSession, error) {
	if sessionID == "" {
		return CallSession{}, ErrInvalidArgument
	}
	if !ValidStatus(newStatus) {
		return CallSession{}, ErrInvalidStatus
	}

	var from CallStatus
	updated, err := s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if !CanTransition(sess.Status, newStatus) {
			return ErrInvalidStatus
		}
		from = sess.Status
		now := s.clock().UTC()
		if newStatus == StatusAnswered && sess.StartedAt == nil {
			sess.StartedAt = &now
		}
		if IsTerminalStatus(newStatus) {
			if sess.StartedAt != nil {
				d := int64(now.Sub(*sess.StartedAt) / time.Second)
				sess.DurationSeconds = &d
			}
			sess.EndedAt = &now
		}
		sess.Status = newStatus
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	s.logTransition(ctx, sessionID, "", string(from), string(newStatus), "")
	if evt, ok := eventForStatus(newStatus); ok {
		s.publishEvent(ctx, evt, updated)
	}
	return updated, nil
}

// UpdateCandidates lets either participant replace the ICE candidate blob
// while negotiation is still in flight.
func (s *Service) UpdateCandidates(ctx context.Context, sessionID, userID, candidates string) (CallSession, error) {
	if sessionID == "" || userID == "" || candidates == "" {
		return CallSession{}, ErrInvalidArgument
	}

	return s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if !sess.HasParticipant(userID) {
			return ErrUnauthorized
		}
		if sess.IsTerminal() {
			return ErrInvalidStatus
		}
		sess.ICECandidates = candidates
		sess.UpdatedAt = s.clock().UTC()
		return nil
	})
}

// ForceFail applies the FAILED terminal transition to a session that is
// still pre-answer (reclaimer timeout, signaling error before pickup).
// The pre-answer check runs inside the serialized update, so a session
// answered after the caller decided to fail it returns ErrInvalidStatus
// instead of being clobbered. actor is recorded in the transition log only.
func (s *Service) ForceFail(ctx context.Context, sessionID, actor, reason string) (CallSession, error) {
	if sessionID == "" {
		return CallSession{}, ErrInvalidArgument
	}

	var from CallStatus
	updated, err := s.repo.Update(ctx, sessionID, func(sess *CallSession) error {
		if !statusIn(sess.Status, ActiveStatuses()) {
			return ErrInvalidStatus
		}
		if !CanTransition(sess.Status, StatusFailed) {
			return ErrInvalidStatus
		}
		from = sess.Status
		now := s.clock().UTC()
		sess.Status = StatusFailed
		sess.EndReason = reason
		sess.EndedAt = &now
		sess.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}

	s.logTransition(ctx, sessionID, actor, string(from), string(StatusFailed), reason)
	s.publishEvent(ctx, EventCallFailed, updated)
	return updated, nil
}

// GetBySessionID returns a single session.
func (s *Service) GetBySessionID(ctx context.Context, sessionID string) (CallSession, error) {
	if sessionID == "" {
		return CallSession{}, ErrInvalidArgument
	}
	return s.repo.Get(ctx, sessionID)
}

// History returns one page of a user's call history, newest first.
func (s *Service) History(ctx context.Context, userID, pageToken string) (Page, error) {
	if userID == "" {
		return Page{}, ErrInvalidArgument
	}
	return s.repo.FindByParticipant(ctx, userID, pageToken, s.historyPageSize)
}

// Missed lists calls the user never answered.
func (s *Service) Missed(ctx context.Context, userID string) ([]CallSession, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.FindByParticipantAndStatus(ctx, userID, StatusMissed)
}

// Recent lists the user's calls created within the last windowDays days.
func (s *Service) Recent(ctx context.Context, userID string, limit, windowDays int) ([]CallSession, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	since := s.clock().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
	return s.repo.FindRecentByParticipant(ctx, userID, since, limit)
}

// Drain waits for in-flight side effects. Call during shutdown.
func (s *Service) Drain() {
	s.effects.Wait()
}

func (s *Service) publishEvent(ctx context.Context, evt EventType, session CallSession) {
	if s.publisher == nil {
		return
	}
	s.fireAndForget(ctx, "publish_"+string(evt), func(ctx context.Context) error {
		return s.publisher.PublishEvent(ctx, TopicCallEvents, Event{
			Type:       evt,
			Session:    session,
			OccurredAt: s.clock().UTC(),
		})
	})
}

func (s *Service) notify(ctx context.Context, op string, fn func(ctx context.Context) error) {
	if s.dispatcher == nil {
		return
	}
	s.fireAndForget(ctx, op, fn)
}

// fireAndForget runs fn off the write path on a detached context. Failures
// are logged, never returned.
func (s *Service) fireAndForget(ctx context.Context, op string, fn func(ctx context.Context) error) {
	log := logger.From(ctx)
	bg := context.WithoutCancel(ctx)
	s.effects.Add(1)
	go func() {
		defer s.effects.Done()
		ctx, cancel := context.WithTimeout(bg, s.sideEffectTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn("call side effect failed", "op", op, "err", err)
		}
	}()
}

func (s *Service) logTransition(ctx context.Context, sessionID, actor, from, to, reason string) {
	if s.transLog == nil {
		return
	}
	if err := s.transLog.LogTransition(ctx, sessionID, actor, from, to, reason); err != nil {
		logger.From(ctx).Warn("transition log failed", "session_id", sessionID, "err", err)
	}
}

func eventForStatus(status CallStatus) (EventType, bool) {
	switch status {
	case StatusAnswered:
		return EventCallAnswered, true
	case StatusRejected:
		return EventCallRejected, true
	case StatusEnded:
		return EventCallEnded, true
	case StatusFailed:
		return EventCallFailed, true
	case StatusMissed:
		return EventCallMissed, true
	default:
		return "", false
	}
}
