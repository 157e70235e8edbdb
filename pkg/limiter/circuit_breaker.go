package limiter

import (
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests uint32                             `json:"max_requests"`
	Interval    time.Duration                      `json:"interval"`
	Timeout     time.Duration                      `json:"timeout"`
	ReadyToTrip func(counts gobreaker.Counts) bool `json:"-"`
}

// DefaultCircuitBreakerConfig opens after five requests with at least half
// of them failing.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
	}
}

// StateChangeFunc is told about every breaker transition.
type StateChangeFunc func(name string, from, to gobreaker.State)

// CircuitBreakerManager manages named circuit breakers sharing one config
type CircuitBreakerManager struct {
	config   CircuitBreakerConfig
	onChange StateChangeFunc
	breakers map[string]*gobreaker.CircuitBreaker
	mu       sync.Mutex
}

// NewCircuitBreakerManager creates a new circuit breaker manager. onChange
// may be nil.
func NewCircuitBreakerManager(config CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		config:   config,
		onChange: onChange,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// breaker returns or creates the breaker for name
func (cbm *CircuitBreakerManager) breaker(name string) *gobreaker.CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cbm.config.MaxRequests,
		Interval:    cbm.config.Interval,
		Timeout:     cbm.config.Timeout,
		ReadyToTrip: cbm.config.ReadyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if cbm.onChange != nil {
				cbm.onChange(name, from, to)
			}
		},
	})
	cbm.breakers[name] = breaker
	return breaker
}

// Execute executes a function through the named circuit breaker
func (cbm *CircuitBreakerManager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbm.breaker(name).Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("circuit breaker %s: %w", name, err)
	}
	return result, nil
}

// GetState returns the current state of a circuit breaker
func (cbm *CircuitBreakerManager) GetState(name string) gobreaker.State {
	return cbm.breaker(name).State()
}

// GetStats returns circuit breaker statistics
func (cbm *CircuitBreakerManager) GetStats(name string) map[string]interface{} {
	breaker := cbm.breaker(name)
	counts := breaker.Counts()

	return map[string]interface{}{
		"name":                 name,
		"state":                cbm.GetState(name).String(),
		"requests":             counts.Requests,
		"total_success":        counts.TotalSuccesses,
		"total_failures":       counts.TotalFailures,
		"consecutive_success":  counts.ConsecutiveSuccesses,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}

// IsOpen checks if the circuit breaker is open
func (cbm *CircuitBreakerManager) IsOpen(name string) bool {
	return cbm.GetState(name) == gobreaker.StateOpen
}
