// Package circuitbreaker stops a caller from repeatedly launching work that
// keeps failing, such as starting a browser for a site that will not load.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

type Config struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint32
	// Cooldown is how long the circuit stays open before one trial call.
	Cooldown      time.Duration
	OnStateChange func(name string, from State, to State)
	Logger        *zap.Logger
	now           func() time.Time
}

type CircuitBreaker struct {
	name             string
	failureThreshold uint32
	cooldown         time.Duration
	onStateChange    func(name string, from State, to State)
	logger           *zap.Logger
	now              func() time.Time

	mu       sync.Mutex
	state    State
	failures uint32
	openedAt time.Time
	trialOut bool
}

func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		onStateChange:    cfg.OnStateChange,
		logger:           cfg.Logger,
		now:              cfg.now,
	}

	if cb.failureThreshold == 0 {
		cb.failureThreshold = 3
	}
	if cb.cooldown == 0 {
		cb.cooldown = 60 * time.Second
	}
	if cb.logger == nil {
		cb.logger = zap.NewNop()
	}
	if cb.now == nil {
		cb.now = time.Now
	}

	return cb
}

// Execute runs fn unless the circuit is open. Only errors for which
// countAsFailure returns true move the breaker towards open; a nil
// countAsFailure counts every error.
func (cb *CircuitBreaker) Execute(fn func() error, countAsFailure func(error) bool) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn()
	failed := err != nil && (countAsFailure == nil || countAsFailure(err))
	cb.afterCall(!failed)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.trialOut {
			return ErrCircuitOpen
		}
		cb.trialOut = true
	}
	return nil
}

func (cb *CircuitBreaker) afterCall(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentState()
	cb.trialOut = false

	if success {
		cb.failures = 0
		if state != StateClosed {
			cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	if state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.openedAt = cb.now()
		cb.setState(StateOpen)
	}
}

// currentState must be called with mu held.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) setState(state State) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}

	cb.logger.Info("Circuit breaker state changed",
		zap.String("name", cb.name),
		zap.String("from", prev.String()),
		zap.String("to", state.String()),
		zap.Uint32("failures", cb.failures),
	)
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Group hands out one breaker per key, created on first use.
type Group struct {
	cfg      Config
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewGroup(cfg Config) *Group {
	return &Group{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

func (g *Group) Get(name string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[name]
	if !ok {
		cb = NewCircuitBreaker(name, g.cfg)
		g.breakers[name] = cb
	}
	return cb
}
