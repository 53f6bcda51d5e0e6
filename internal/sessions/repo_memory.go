package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and early development.
// It mirrors the Postgres implementation's semantics, including per-session
// mutation serialization (a single lock is held across Update's
// read-validate-write).

type MemoryRepo struct {
	mu       sync.Mutex
	sessions map[string]CallSession
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sessions: make(map[string]CallSession)}
}

func (r *MemoryRepo) Create(ctx context.Context, s CallSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.SessionID]; exists {
		return fmt.Errorf("session %s already exists", s.SessionID)
	}
	r.sessions[s.SessionID] = s
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, sessionID string) (CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, sessionID string, fn func(s *CallSession) error) (CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return CallSession{}, ErrNotFound
	}
	if err := fn(&s); err != nil {
		return CallSession{}, err
	}
	r.sessions[sessionID] = s
	return s, nil
}

func (r *MemoryRepo) FindActiveByCaller(ctx context.Context, callerID string, statuses []CallStatus) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.CallerID == callerID && statusIn(s.Status, statuses) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepo) FindByParticipant(ctx context.Context, userID string, pageToken string, pageSize int) (Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rows []CallSession
	for _, s := range r.sessions {
		if s.HasParticipant(userID) {
			rows = append(rows, s)
		}
	}
	sortNewestFirst(rows)

	if pageToken != "" {
		afterTs, afterID, err := decodePageToken(pageToken)
		if err != nil {
			return Page{}, err
		}
		idx := 0
		for i, s := range rows {
			if s.CreatedAt.Before(afterTs) || (s.CreatedAt.Equal(afterTs) && s.SessionID < afterID) {
				idx = i
				break
			}
			idx = len(rows)
		}
		rows = rows[idx:]
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

func (r *MemoryRepo) FindByParticipantAndStatus(ctx context.Context, userID string, status CallStatus) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.HasParticipant(userID) && s.Status == status {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryRepo) FindRecentByParticipant(ctx context.Context, userID string, since time.Time, limit int) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallSession
	for _, s := range r.sessions {
		if s.HasParticipant(userID) && !s.CreatedAt.Before(since) {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) FindStale(ctx context.Context, statuses []CallStatus, olderThan time.Time) ([]CallSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallSession
	for _, s := range r.sessions {
		if statusIn(s.Status, statuses) && s.CreatedAt.Before(olderThan) {
			out = append(out, s)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func statusIn(s CallStatus, set []CallStatus) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func sortNewestFirst(rows []CallSession) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].SessionID > rows[j].SessionID
	})
}
