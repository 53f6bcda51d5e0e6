package sessions

import "testing"

func TestCanTransition_AllowedEdges(t *testing.T) {
	allowed := []struct {
		from, to CallStatus
	}{
		{StatusInitiated, StatusRinging},
		{StatusInitiated, StatusFailed},
		{StatusRinging, StatusAnswered},
		{StatusRinging, StatusRejected},
		{StatusRinging, StatusMissed},
		{StatusRinging, StatusFailed},
		{StatusAnswered, StatusEnded},
		{StatusAnswered, StatusFailed},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsEverythingElse(t *testing.T) {
	all := []CallStatus{
		StatusInitiated, StatusRinging, StatusAnswered,
		StatusRejected, StatusEnded, StatusFailed, StatusMissed,
	}
	allowed := map[CallStatus]map[CallStatus]bool{
		StatusInitiated: {StatusRinging: true, StatusFailed: true},
		StatusRinging:   {StatusAnswered: true, StatusRejected: true, StatusMissed: true, StatusFailed: true},
		StatusAnswered:  {StatusEnded: true, StatusFailed: true},
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	if CanTransition("BOGUS", StatusRinging) {
		t.Fatalf("unknown source status must be rejected")
	}
	if CanTransition(StatusInitiated, "BOGUS") {
		t.Fatalf("unknown target status must be rejected")
	}
}

func TestIsTerminalStatus(t *testing.T) {
	terminal := []CallStatus{StatusRejected, StatusEnded, StatusFailed, StatusMissed}
	for _, s := range terminal {
		if !IsTerminalStatus(s) {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []CallStatus{StatusInitiated, StatusRinging, StatusAnswered} {
		if IsTerminalStatus(s) {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
	if IsTerminalStatus("BOGUS") {
		t.Fatalf("unknown status is not terminal")
	}
}

func TestActiveStatuses(t *testing.T) {
	active := ActiveStatuses()
	if len(active) != 2 || active[0] != StatusInitiated || active[1] != StatusRinging {
		t.Fatalf("unexpected active statuses: %v", active)
	}
}
