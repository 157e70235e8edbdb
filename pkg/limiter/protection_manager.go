package limiter

import (
	"context"
	"fmt"
)

// ProtectionManager runs calls to a flaky dependency through a named
// circuit breaker and retries transient failures inside it.
type ProtectionManager struct {
	retryManager   *RetryManager
	circuitBreaker *CircuitBreakerManager
}

// NewProtectionManager creates a new protection manager
func NewProtectionManager(retry *RetryConfig, breakers *CircuitBreakerManager) *ProtectionManager {
	if breakers == nil {
		breakers = NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), nil)
	}
	return &ProtectionManager{
		retryManager:   NewRetryManager(retry),
		circuitBreaker: breakers,
	}
}

// ExecuteWithProtection executes fn with retries behind the breaker for name
func (pm *ProtectionManager) ExecuteWithProtection(ctx context.Context, name string, fn RetryableFunc) error {
	_, err := pm.circuitBreaker.Execute(name, func() (interface{}, error) {
		return nil, pm.retryManager.Execute(ctx, fn)
	})
	if err != nil {
		return fmt.Errorf("protected execution failed: %w", err)
	}
	return nil
}

// IsAvailable reports whether calls under name would be attempted.
func (pm *ProtectionManager) IsAvailable(name string) bool {
	return !pm.circuitBreaker.IsOpen(name)
}

// GetStats returns breaker and retry settings for name
func (pm *ProtectionManager) GetStats(name string) map[string]interface{} {
	cfg := pm.retryManager.config
	return map[string]interface{}{
		"circuit_breaker": pm.circuitBreaker.GetStats(name),
		"retry_config": map[string]interface{}{
			"max_retries":    cfg.MaxRetries,
			"base_delay":     cfg.BaseDelay.String(),
			"max_delay":      cfg.MaxDelay.String(),
			"backoff_factor": cfg.BackoffFactor,
			"jitter":         cfg.Jitter,
		},
	}
}
