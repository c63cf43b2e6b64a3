package mt

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState represents the current state of a provider's circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the provider is operational and requests flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the provider has tripped due to failures and is skipped.
	CircuitOpen
	// CircuitHalfOpen means one probe request is allowed to test recovery.
	CircuitHalfOpen
)

// String returns a human-readable string for the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for a provider circuit breaker.
type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures before the circuit trips.
	Threshold int
	// ResetAfter is how long to wait before probing the provider again.
	ResetAfter time.Duration
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Threshold:  5,
		ResetAfter: 30 * time.Second,
	}
}

// CircuitBreaker guards one translation provider. It trips open after N
// consecutive failures; while open the gateway skips the provider entirely.
type CircuitBreaker struct {
	mu               sync.RWMutex
	provider         string
	consecutiveFails int
	threshold        int
	resetAfter       time.Duration
	lastFailure      time.Time
	state            CircuitState
}

// NewCircuitBreaker creates a circuit breaker for the named provider.
func NewCircuitBreaker(provider string, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		provider:   provider,
		threshold:  config.Threshold,
		resetAfter: config.ResetAfter,
		state:      CircuitClosed,
	}
}

// Allow returns true if a request to the provider may proceed. After the
// reset window an open circuit transitions to half-open and admits one probe.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, nil
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.resetAfter {
			cb.state = CircuitHalfOpen
			return true, nil
		}
		return false, fmt.Errorf("provider %s unhealthy: %d consecutive failures, last %v ago",
			cb.provider, cb.consecutiveFails, time.Since(cb.lastFailure).Round(time.Second))
	case CircuitHalfOpen:
		// A probe is already in flight.
		return false, fmt.Errorf("provider %s recovering: probe in flight", cb.provider)
	default:
		return false, fmt.Errorf("provider %s circuit in unknown state %v", cb.provider, cb.state)
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.state = CircuitClosed
}

// RecordFailure increments the failure count and trips the circuit when the
// threshold is reached. A failed half-open probe reopens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen {
		cb.state = CircuitOpen
		return
	}

	if cb.consecutiveFails >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// Health reports the breaker as advisory provider health.
func (cb *CircuitBreaker) Health() ProviderHealth {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return ProviderHealth{
		Name:                cb.provider,
		State:               cb.state.String(),
		Up:                  cb.state == CircuitClosed,
		ConsecutiveFailures: cb.consecutiveFails,
	}
}
