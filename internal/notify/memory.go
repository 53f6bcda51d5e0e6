package notify

import (
	"context"
	"sync"

	"signaling-platform/internal/sessions"
)

// MemoryDispatcher records alerts for test assertions.
type MemoryDispatcher struct {
	mu       sync.Mutex
	incoming []sessions.IncomingCallNotice
	ended    []sessions.CallEndedNotice
	err      error // if set, both methods return this error
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) NotifyIncomingCall(_ context.Context, n sessions.IncomingCallNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.incoming = append(d.incoming, n)
	return nil
}

func (d *MemoryDispatcher) NotifyCallEnded(_ context.Context, n sessions.CallEndedNotice) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.ended = append(d.ended, n)
	return nil
}

// Incoming returns a copy of recorded incoming-call alerts.
func (d *MemoryDispatcher) Incoming() []sessions.IncomingCallNotice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sessions.IncomingCallNotice, len(d.incoming))
	copy(out, d.incoming)
	return out
}

// Ended returns a copy of recorded call-ended alerts.
func (d *MemoryDispatcher) Ended() []sessions.CallEndedNotice {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]sessions.CallEndedNotice, len(d.ended))
	copy(out, d.ended)
	return out
}

// SetError makes subsequent calls fail with err. Pass nil to clear.
func (d *MemoryDispatcher) SetError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}
