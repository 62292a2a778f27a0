package control

import (
	"testing"
	"time"
)

func TestCircuitBreaker_PollLoopBackoff(t *testing.T) {
	c := NewCircuitBreaker(3, time.Minute)
	now := time.Now()

	// Two failed polls stay under the threshold.
	for i := 0; i < 2; i++ {
		if !c.Allow(now) {
			t.Fatalf("poll %d denied while closed", i+1)
		}
		c.RecordFailure(now)
	}
	if c.State() != CircuitClosed {
		t.Fatalf("state after 2 failures = %s, want closed", c.State())
	}

	// The third consecutive failure trips the breaker.
	c.RecordFailure(now)
	if c.State() != CircuitOpen {
		t.Fatalf("state after threshold failures = %s, want open", c.State())
	}
	if c.Allow(now.Add(30 * time.Second)) {
		t.Fatal("poll allowed mid-cooldown")
	}

	// After the cooldown one probe poll goes through.
	if !c.Allow(now.Add(time.Minute)) {
		t.Fatal("probe denied after cooldown")
	}
	if c.State() != CircuitHalfOpen {
		t.Fatalf("state after cooldown = %s, want half_open", c.State())
	}

	// A failed probe reopens for a fresh cooldown.
	c.RecordFailure(now.Add(time.Minute))
	if c.State() != CircuitOpen {
		t.Fatalf("state after failed probe = %s, want open", c.State())
	}
	if c.Allow(now.Add(90 * time.Second)) {
		t.Fatal("poll allowed before the reopened cooldown elapsed")
	}

	// A successful probe closes and resets the failure count.
	if !c.Allow(now.Add(3 * time.Minute)) {
		t.Fatal("second probe denied")
	}
	c.RecordSuccess()
	if c.State() != CircuitClosed {
		t.Fatalf("state after probe success = %s, want closed", c.State())
	}
	c.RecordFailure(now.Add(3 * time.Minute))
	c.RecordFailure(now.Add(3 * time.Minute))
	if c.State() != CircuitClosed {
		t.Fatal("failure count not reset by success")
	}
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	c := NewCircuitBreaker(0, 0)
	if c.Threshold != 5 {
		t.Errorf("default threshold = %d, want 5", c.Threshold)
	}
	if c.Cooldown != 30*time.Second {
		t.Errorf("default cooldown = %s, want 30s", c.Cooldown)
	}
}
