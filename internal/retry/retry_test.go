package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-score-service/internal/domain"
)

var fast = Policy{MaxAttempts: 3, Delay: time.Millisecond}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fast, func(context.Context) (*int, error) {
		calls++
		if calls < 3 {
			return nil, domain.ErrTransient
		}
		v := 42
		return &v, nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if *got != 42 || calls != 3 {
		t.Fatalf("expected 42 after 3 calls, got %d after %d", *got, calls)
	}
}

func TestDoPropagatesLastErrorAfterBudget(t *testing.T) {
	calls := 0
	last := errors.New("connection reset")
	_, err := Do(context.Background(), fast, func(context.Context) (int, error) {
		calls++
		if calls == 3 {
			return 0, last
		}
		return 0, domain.ErrTransient
	})
	if !errors.Is(err, last) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoTreatsNilResultAsFailure(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, func(context.Context) (*domain.ScoreRecord, error) {
		calls++
		return nil, nil
	})
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected empty result error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected nil result to be retried, got %d calls", calls)
	}
}

func TestDoAcceptsNilResultForDeletes(t *testing.T) {
	calls := 0
	res, err := Do(context.Background(), fast, func(context.Context) (*domain.ScoreRecord, error) {
		calls++
		return nil, nil
	}, AbsentOK())
	if err != nil || res != nil {
		t.Fatalf("expected nil result without error, got %v %v", res, err)
	}
	if calls != 1 {
		t.Fatalf("expected single call, got %d", calls)
	}
}

func TestDoStopsOnPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"not found", domain.ErrScoreNotFound},
		{"duplicate", domain.ErrDuplicate},
		{"validation", &domain.ValidationError{Field: "name", Msg: "too short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Do(context.Background(), fast, func(context.Context) (int, error) {
				calls++
				return 0, tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, got %v", tt.err, err)
			}
			if calls != 1 {
				t.Fatalf("expected no retry, got %d calls", calls)
			}
		})
	}
}

func TestDoNotifiesBeforeEachRetry(t *testing.T) {
	var attempts []int
	_, _ = Do(context.Background(), fast, func(context.Context) (int, error) {
		return 0, domain.ErrTransient
	}, OnRetry(func(attempt int, _ error, _ time.Duration) {
		attempts = append(attempts, attempt)
	}))
	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("expected notifications after attempts 1 and 2, got %v", attempts)
	}
}

func TestExecIgnoresAbsentCheck(t *testing.T) {
	calls := 0
	err := Exec(context.Background(), fast, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("expected one successful call, got %d calls err=%v", calls, err)
	}
}
