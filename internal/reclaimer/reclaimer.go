// Package reclaimer force-terminates call sessions that never progressed
// past INITIATED or RINGING. It is the only recovery path for half-open
// signaling: caller disconnected, notification never delivered, callee app
// killed.
package reclaimer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"signaling-platform/internal/sessions"
)

// EndReason recorded on every reclaimed session.
const EndReasonTimeout = "Call timeout"

const actor = "reclaimer"

// Store is the read side the sweep needs.
type Store interface {
	FindStale(ctx context.Context, statuses []sessions.CallStatus, olderThan time.Time) ([]sessions.CallSession, error)
}

// Coordinator applies the forced terminal transition. Going through the
// coordinator keeps the sweep on the same per-session serialized write
// path as live mutations, so a concurrently answered call is never
// clobbered.
type Coordinator interface {
	ForceFail(ctx context.Context, sessionID, actor, reason string) (sessions.CallSession, error)
}

// SweepLock optionally serializes sweeps across processes. TryLock returns
// ok=false when another instance holds the lock; that sweep is skipped.
type SweepLock interface {
	TryLock(ctx context.Context) (release func(context.Context), ok bool, err error)
}

type Reclaimer struct {
	store Store
	coord Coordinator
	lock  SweepLock

	interval time.Duration
	grace    time.Duration
	clock    func() time.Time
	log      *slog.Logger
}

type Option func(*Reclaimer)

// WithClock sets the time source. Override in tests.
func WithClock(clock func() time.Time) Option {
	return func(r *Reclaimer) { r.clock = clock }
}

// WithInterval sets the sweep interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reclaimer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithGracePeriod sets how long a session may sit in a pre-answer status
// before it is reclaimed.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Reclaimer) {
		if d > 0 {
			r.grace = d
		}
	}
}

// WithSweepLock enables cross-process sweep serialization.
func WithSweepLock(l SweepLock) Option {
	return func(r *Reclaimer) { r.lock = l }
}

// WithLogger sets the sweep logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Reclaimer) {
		if log != nil {
			r.log = log
		}
	}
}

func New(store Store, coord Coordinator, opts ...Option) *Reclaimer {
	r := &Reclaimer{
		store:    store,
		coord:    coord,
		interval: time.Minute,
		grace:    5 * time.Minute,
		clock:    time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reclaimer started", "interval", r.interval, "grace_period", r.grace)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reclaimer stopped")
			return
		case <-ticker.C:
			if _, err := r.SweepOnce(ctx); err != nil {
				r.log.Error("reclaimer sweep failed", "err", err)
			}
		}
	}
}

// SweepOnce reclaims every session stuck in a pre-answer status for longer
// than the grace period and returns how many were failed. A session that
// progressed between the stale read and the forced write is skipped.
func (r *Reclaimer) SweepOnce(ctx context.Context) (int, error) {
	if r.lock != nil {
		release, ok, err := r.lock.TryLock(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, nil
		}
		defer release(ctx)
	}

	cutoff := r.clock().UTC().Add(-r.grace)
	stale, err := r.store.FindStale(ctx, sessions.ActiveStatuses(), cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, s := range stale {
		_, err := r.coord.ForceFail(ctx, s.SessionID, actor, EndReasonTimeout)
		if err != nil {
			// A live mutation won the race; the session is no longer stuck.
			if errors.Is(err, sessions.ErrInvalidStatus) || errors.Is(err, sessions.ErrNotFound) {
				continue
			}
			r.log.Error("reclaim failed", "session_id", s.SessionID, "err", err)
			continue
		}
		reclaimed++
		r.log.Info("reclaimed stuck session",
			"session_id", s.SessionID,
			"caller_id", s.CallerID,
			"stuck_status", string(s.Status),
		)
	}
	return reclaimed, nil
}
