package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

var errUpstream = errors.New("upstream down")

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.ConsecutiveFailures = 3
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := New[int](cfg)

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: got %v, want upstream error", i, err)
		}
	}

	if !cb.IsOpen() {
		t.Fatalf("breaker state = %s, want open", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("open breaker returned %v, want ErrOpenState", err)
	}

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestCircuitBreaker_PassesResult(t *testing.T) {
	cb := New[string](DefaultConfig("ok"))

	got, err := cb.Execute(func() (string, error) { return "quote", nil })
	if err != nil || got != "quote" {
		t.Fatalf("Execute() = %q, %v", got, err)
	}
	if cb.Name() != "ok" {
		t.Errorf("Name() = %q", cb.Name())
	}
}
