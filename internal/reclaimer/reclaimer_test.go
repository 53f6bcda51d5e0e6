package reclaimer

import (
	"context"
	"errors"
	"testing"
	"time"

	"signaling-platform/internal/sessions"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func setup(t *testing.T, t0 time.Time) (*sessions.MemoryRepo, *sessions.Service) {
	t.Helper()
	repo := sessions.NewMemoryRepo()
	svc := sessions.NewService(repo, nil, nil, sessions.WithClock(fixedClock(t0)))
	return repo, svc
}

func TestSweepOnce_FailsStuckSessions(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo, svc := setup(t, t0)

	stuck, err := svc.InitiateCall(context.Background(), "u1", "u2", sessions.CallTypeVoice, "sdp")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	r := New(repo, svc,
		WithClock(fixedClock(t0.Add(6*time.Minute))),
		WithGracePeriod(5*time.Minute),
	)
	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed session, got %d", n)
	}

	got, err := svc.GetBySessionID(context.Background(), stuck.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != sessions.StatusFailed {
		t.Fatalf("expected FAILED, got %s", got.Status)
	}
	if got.EndReason != EndReasonTimeout {
		t.Fatalf("expected end reason %q, got %q", EndReasonTimeout, got.EndReason)
	}
	if got.EndedAt == nil {
		t.Fatalf("expected ended_at set")
	}
}

func TestSweepOnce_ReclaimsRingingToo(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo, svc := setup(t, t0)

	s, err := svc.InitiateCall(context.Background(), "u1", "u2", sessions.CallTypeVoice, "sdp")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), s.SessionID, sessions.StatusRinging); err != nil {
		t.Fatalf("ring: %v", err)
	}

	r := New(repo, svc, WithClock(fixedClock(t0.Add(10*time.Minute))))
	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 reclaimed session, got %d", n)
	}
}

func TestSweepOnce_LeavesYoungAndAnsweredSessionsAlone(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo, svc := setup(t, t0)

	young, err := svc.InitiateCall(context.Background(), "u1", "u2", sessions.CallTypeVoice, "sdp")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	answered, err := svc.InitiateCall(context.Background(), "u3", "u4", sessions.CallTypeVoice, "sdp")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), answered.SessionID, sessions.StatusRinging); err != nil {
		t.Fatalf("ring: %v", err)
	}
	if _, err := svc.AnswerCall(context.Background(), answered.SessionID, "u4", "sdp2", ""); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// Sweep within the young session's grace window; the answered one is
	// out of scope regardless of age.
	r := New(repo, svc,
		WithClock(fixedClock(t0.Add(4*time.Minute))),
		WithGracePeriod(5*time.Minute),
	)
	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected nothing reclaimed, got %d", n)
	}

	got, _ := svc.GetBySessionID(context.Background(), young.SessionID)
	if got.Status != sessions.StatusInitiated {
		t.Fatalf("young session modified: %s", got.Status)
	}
	got, _ = svc.GetBySessionID(context.Background(), answered.SessionID)
	if got.Status != sessions.StatusAnswered {
		t.Fatalf("answered session modified: %s", got.Status)
	}
}

// staleStore replays a fixed stale list, simulating a session that
// progressed between the sweep's read and its write.
type staleStore struct {
	stale []sessions.CallSession
}

func (s *staleStore) FindStale(context.Context, []sessions.CallStatus, time.Time) ([]sessions.CallSession, error) {
	return s.stale, nil
}

func TestSweepOnce_SkipsSessionsThatProgressedConcurrently(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, svc := setup(t, t0)

	s, err := svc.InitiateCall(context.Background(), "u1", "u2", sessions.CallTypeVoice, "sdp")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	staleRead := s // stale snapshot at INITIATED

	if _, err := svc.UpdateStatus(context.Background(), s.SessionID, sessions.StatusRinging); err != nil {
		t.Fatalf("ring: %v", err)
	}
	if _, err := svc.AnswerCall(context.Background(), s.SessionID, "u2", "sdp2", ""); err != nil {
		t.Fatalf("answer: %v", err)
	}

	r := New(&staleStore{stale: []sessions.CallSession{staleRead}}, svc,
		WithClock(fixedClock(t0.Add(10*time.Minute))),
	)
	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 reclaimed, got %d", n)
	}

	got, _ := svc.GetBySessionID(context.Background(), s.SessionID)
	if got.Status != sessions.StatusAnswered {
		t.Fatalf("answered session clobbered by sweep: %s", got.Status)
	}
}

type fakeLock struct {
	ok       bool
	acquired int
	released int
}

func (l *fakeLock) TryLock(context.Context) (func(context.Context), bool, error) {
	if !l.ok {
		return nil, false, nil
	}
	l.acquired++
	return func(context.Context) { l.released++ }, true, nil
}

type failingStore struct{ t *testing.T }

func (s *failingStore) FindStale(context.Context, []sessions.CallStatus, time.Time) ([]sessions.CallSession, error) {
	s.t.Fatalf("store must not be queried when the sweep lock is held elsewhere")
	return nil, nil
}

func TestSweepOnce_SkipsWhenLockHeldElsewhere(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, svc := setup(t, t0)

	r := New(&failingStore{t: t}, svc,
		WithClock(fixedClock(t0)),
		WithSweepLock(&fakeLock{ok: false}),
	)
	n, err := r.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no-op sweep, got %d", n)
	}
}

func TestSweepOnce_ReleasesLock(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo, svc := setup(t, t0)

	lock := &fakeLock{ok: true}
	r := New(repo, svc, WithClock(fixedClock(t0)), WithSweepLock(lock))
	if _, err := r.SweepOnce(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if lock.acquired != 1 || lock.released != 1 {
		t.Fatalf("lock not acquired/released exactly once: %+v", lock)
	}
}

func TestSweepOnce_PropagatesStoreErrors(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, svc := setup(t, t0)

	r := New(&erroringStore{}, svc, WithClock(fixedClock(t0)))
	if _, err := r.SweepOnce(context.Background()); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

type erroringStore struct{}

func (s *erroringStore) FindStale(context.Context, []sessions.CallStatus, time.Time) ([]sessions.CallSession, error) {
	return nil, errors.New("store unavailable")
}
