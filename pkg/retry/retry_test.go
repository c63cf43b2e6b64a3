package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	wantErr := errors.New("still broken")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Do() = %v, want %v", err, wantErr)
	}
	if calls != 4 { // initial attempt + 3 retries
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2.0}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, func() error { return errors.New("boom") })
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestDoWithResultReturnsValue(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("timeout")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoWithResult() error = %v", err)
	}
	if got != 42 {
		t.Errorf("got = %d, want 42", got)
	}
}

type permanentErr struct{}

func (permanentErr) Error() string     { return "invalid credentials" }
func (permanentErr) IsRetryable() bool { return false }

func TestDoIfRetryableStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := DoIfRetryable(context.Background(), fastConfig(), func() error {
		calls++
		return permanentErr{}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries on permanent error)", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"rate limit", errors.New("429 Too Many Requests"), true},
		{"server error", errors.New("503 Service Unavailable"), true},
		{"bad request", errors.New("400 bad request"), false},
		{"syntax error", errors.New("syntax error at or near SELECT"), false},
		{"explicit permanent", permanentErr{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
