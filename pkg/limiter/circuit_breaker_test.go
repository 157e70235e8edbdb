package limiter

import (
	"errors"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
)

func TestCircuitBreakerManager(t *testing.T) {
	cbm := NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), nil)

	result, err := cbm.Execute("store", func() (interface{}, error) {
		return "success", nil
	})
	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}
	if cbm.GetState("store") != gobreaker.StateClosed {
		t.Error("Expected circuit breaker to be closed after success")
	}
}

func TestCircuitBreakerManagerWithFailures(t *testing.T) {
	var mu sync.Mutex
	var transitions []gobreaker.State
	cbm := NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), func(name string, from, to gobreaker.State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	})

	for i := 0; i < 5; i++ {
		_, err := cbm.Execute("failing", func() (interface{}, error) {
			return nil, errors.New("simulated failure")
		})
		if err == nil {
			t.Error("Expected error for failing function")
		}
	}

	if !cbm.IsOpen("failing") {
		t.Error("Expected circuit breaker to be open after failures")
	}

	_, err := cbm.Execute("failing", func() (interface{}, error) {
		return "success", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected open state error, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("Expected one transition to open, got %v", transitions)
	}
}

func TestCircuitBreakerManagerStats(t *testing.T) {
	cbm := NewCircuitBreakerManager(DefaultCircuitBreakerConfig(), nil)

	cbm.Execute("stats", func() (interface{}, error) {
		return "success", nil
	})
	cbm.Execute("stats", func() (interface{}, error) {
		return nil, errors.New("failure")
	})

	stats := cbm.GetStats("stats")
	if stats["name"] != "stats" {
		t.Errorf("Expected name to be stats, got %v", stats["name"])
	}
	if stats["state"] != "closed" {
		t.Errorf("Expected closed state, got %v", stats["state"])
	}
	if stats["requests"] != uint32(2) {
		t.Errorf("Expected 2 requests, got %v", stats["requests"])
	}
	if stats["total_failures"] != uint32(1) {
		t.Errorf("Expected 1 failure, got %v", stats["total_failures"])
	}
}
