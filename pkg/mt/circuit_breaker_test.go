package mt

import (
	"testing"
	"time"
)

func TestCircuitTripsAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("primary", CircuitBreakerConfig{Threshold: 3, ResetAfter: time.Minute})

	for i := 0; i < 2; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("circuit should stay closed below threshold, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("circuit should trip at threshold, got %s", cb.State())
	}

	allowed, err := cb.Allow()
	if allowed {
		t.Error("open circuit should not allow requests")
	}
	if err == nil {
		t.Error("open circuit should explain the rejection")
	}
}

func TestCircuitHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker("primary", CircuitBreakerConfig{Threshold: 1, ResetAfter: 5 * time.Millisecond})

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatal("circuit should be open")
	}

	time.Sleep(10 * time.Millisecond)

	allowed, _ := cb.Allow()
	if !allowed {
		t.Fatal("probe should be allowed after reset window")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want half-open", cb.State())
	}

	// Second caller is rejected while the probe is in flight.
	if allowed, _ := cb.Allow(); allowed {
		t.Error("half-open circuit should admit only one probe")
	}

	// Failed probe reopens the circuit.
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("failed probe should reopen, got %s", cb.State())
	}
}

func TestCircuitClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("primary", CircuitBreakerConfig{Threshold: 1, ResetAfter: 5 * time.Millisecond})

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	if allowed, _ := cb.Allow(); !allowed {
		t.Fatal("probe should be allowed")
	}

	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("successful probe should close circuit, got %s", cb.State())
	}

	health := cb.Health()
	if !health.Up || health.ConsecutiveFailures != 0 {
		t.Errorf("health after recovery = %+v", health)
	}
}
