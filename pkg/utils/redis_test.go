package utils

import (
	"testing"
	"time"
)

func TestLockReleaseScriptCompiles(t *testing.T) {
	// Compile-time smoke test: script should be initialized.
	if lockReleaseScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestNewRedisLock_RejectsInvalidArgs(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", time.Second); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
