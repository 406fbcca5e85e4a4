// Package circuitbreaker implements a keyed, in-memory circuit breaker.
// The wave transport keys it by gateway host so a failing gateway stops
// receiving traffic until the reset timeout elapses.
package circuitbreaker

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// State represents the state of the circuit for one key.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

const (
	defaultFailureThreshold = 3
	defaultResetTimeout     = 30 * time.Second
)

// Config tunes the breaker. Zero values fall back to defaults.
type Config struct {
	FailureThreshold int           // Consecutive failures that open the circuit
	ResetTimeout     time.Duration // Time spent Open before a trial request is let through
	Logger           *zap.Logger
}

type keyState struct {
	state     State
	failures  int
	openUntil time.Time
}

// CircuitBreaker tracks consecutive failures per key.
type CircuitBreaker struct {
	mu     sync.Mutex
	keys   map[string]*keyState
	cfg    Config
	logger *zap.Logger
}

// NewCircuitBreaker creates a CircuitBreaker from cfg.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		keys:   make(map[string]*keyState),
		cfg:    cfg,
		logger: logger,
	}
}

// get must be called with mu held.
func (cb *CircuitBreaker) get(key string) *keyState {
	ks, ok := cb.keys[key]
	if !ok {
		ks = &keyState{state: StateClosed}
		cb.keys[key] = ks
	}
	return ks
}

func (cb *CircuitBreaker) transition(key string, ks *keyState, to State) {
	if ks.state == to {
		return
	}
	cb.logger.Info("circuit state changed",
		zap.String("key", key),
		zap.Stringer("from", ks.state),
		zap.Stringer("to", to),
	)
	ks.state = to
}

// AllowRequest reports whether a request for key may proceed.
// An Open circuit whose timeout has elapsed moves to HalfOpen and lets the request through.
func (cb *CircuitBreaker) AllowRequest(key string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ks := cb.get(key)
	switch ks.state {
	case StateOpen:
		if time.Now().Before(ks.openUntil) {
			return false
		}
		cb.transition(key, ks, StateHalfOpen)
		ks.failures = 0
		return true
	default:
		return true
	}
}

// RecordFailure records a failed request for key.
func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ks := cb.get(key)
	switch ks.state {
	case StateClosed:
		ks.failures++
		if ks.failures >= cb.cfg.FailureThreshold {
			cb.open(key, ks)
		}
	case StateHalfOpen:
		cb.open(key, ks)
	case StateOpen:
		// already open; the timeout is not extended
	}
}

func (cb *CircuitBreaker) open(key string, ks *keyState) {
	cb.transition(key, ks, StateOpen)
	ks.failures = cb.cfg.FailureThreshold
	ks.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
}

// RecordSuccess records a successful request for key. A success while HalfOpen closes the circuit.
func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ks := cb.get(key)
	switch ks.state {
	case StateClosed, StateHalfOpen:
		cb.transition(key, ks, StateClosed)
		ks.failures = 0
	case StateOpen:
	}
}

// GetProviderStatus returns the state and consecutive failure count for key without transitioning it.
func (cb *CircuitBreaker) GetProviderStatus(key string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	ks := cb.get(key)
	return ks.state, ks.failures
}
