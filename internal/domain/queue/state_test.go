package queue

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StatePending, StateActive, true},
		{StateActive, StateCompleted, true},
		{StateActive, StateRetrying, true},
		{StateActive, StateFailed, true},
		{StateRetrying, StateActive, true},

		{StatePending, StateCompleted, false},
		{StateRetrying, StateFailed, false},
		{StateCompleted, StateActive, false},
		{StateFailed, StateActive, false},
		{StateFailed, StateRetrying, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{0, 2 * time.Second}, // clamped to the first attempt
	}

	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicyOnFailure(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 3, BackoffBase: 2 * time.Second}

	first := p.OnFailure(1)
	if first.State != StateRetrying || first.RetryIn != 2*time.Second {
		t.Fatalf("OnFailure(1) = %+v, want retrying in 2s", first)
	}

	second := p.OnFailure(2)
	if second.State != StateRetrying || second.RetryIn != 4*time.Second {
		t.Fatalf("OnFailure(2) = %+v, want retrying in 4s", second)
	}

	last := p.OnFailure(3)
	if last.State != StateFailed {
		t.Fatalf("OnFailure(3) = %+v, want failed", last)
	}
	if last.RetryIn != 0 {
		t.Fatalf("failed outcome carries retry delay %v", last.RetryIn)
	}
}

func TestPolicyOnSuccess(t *testing.T) {
	t.Parallel()

	p := Policy{MaxAttempts: 3, BackoffBase: time.Second}
	if got := p.OnSuccess(); got.State != StateCompleted {
		t.Fatalf("OnSuccess() = %+v, want completed", got)
	}
}
