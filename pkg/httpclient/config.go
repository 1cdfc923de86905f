package httpclient

import (
	"fmt"
	"time"
)

// Config controls timeout and retry behavior for clients built by New.
type Config struct {
	// Timeout bounds how long the server may take to start responding.
	// It is applied to response headers rather than the full body so that
	// long-lived streaming responses are not cut off mid-read. Must be > 0.
	Timeout time.Duration

	// RetryAttempts is the number of retries after the initial attempt.
	// 0 disables the retry layer entirely.
	RetryAttempts int

	// RetryBackoff is the delay before the first retry. Later retries
	// double it, up to MaxBackoff.
	RetryBackoff time.Duration

	// MaxBackoff caps the per-retry delay, including delays taken from a
	// server's Retry-After header.
	MaxBackoff time.Duration

	// UserAgent is sent on every request that does not already carry one.
	UserAgent string
}

// DefaultConfig returns the settings used by the provider clients unless
// overridden.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 2,
		RetryBackoff:  250 * time.Millisecond,
		MaxBackoff:    10 * time.Second,
		UserAgent:     "maestro/1.0",
	}
}

// Validate reports the first invalid field, if any.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must be >= 0, got %d", c.RetryAttempts)
	}

	if c.RetryAttempts > 0 {
		if c.RetryBackoff <= 0 {
			return fmt.Errorf("retry_backoff must be > 0 when retry_attempts > 0, got %v", c.RetryBackoff)
		}
		if c.MaxBackoff < c.RetryBackoff {
			return fmt.Errorf("max_backoff (%v) must be >= retry_backoff (%v)", c.MaxBackoff, c.RetryBackoff)
		}
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent must be non-empty")
	}

	return nil
}
