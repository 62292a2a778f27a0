// Package control holds the poll-loop circuit breaker: after repeated
// transport failures the bot stops hammering the chat API and backs off
// for a cooldown before probing again.
package control

import "time"

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips open after Threshold consecutive failures, stays
// open for Cooldown, then allows a single half-open probe whose outcome
// decides between closing and reopening.
type CircuitBreaker struct {
	Threshold int
	Cooldown  time.Duration

	state    CircuitState
	failures int
	openedAt time.Time
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		Threshold: threshold,
		Cooldown:  cooldown,
		state:     CircuitClosed,
	}
}

func (c *CircuitBreaker) State() CircuitState {
	return c.state
}

// Allow returns whether a poll is allowed at this instant.
func (c *CircuitBreaker) Allow(now time.Time) bool {
	if c.state != CircuitOpen {
		return true
	}
	if now.Sub(c.openedAt) >= c.Cooldown {
		c.state = CircuitHalfOpen
		return true
	}
	return false
}

// RecordSuccess closes the breaker and resets the failure count.
func (c *CircuitBreaker) RecordSuccess() {
	c.state = CircuitClosed
	c.failures = 0
}

// RecordFailure counts a failed poll. A failure on the half-open probe
// reopens immediately; otherwise the breaker opens once the consecutive
// failure count reaches the threshold.
func (c *CircuitBreaker) RecordFailure(now time.Time) {
	if c.state == CircuitHalfOpen {
		c.state = CircuitOpen
		c.openedAt = now
		return
	}
	c.failures++
	if c.failures >= c.Threshold {
		c.state = CircuitOpen
		c.openedAt = now
	}
}
