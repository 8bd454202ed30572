package client

import (
	"log/slog"
	"time"
)

// Option configures a Client at construction time.
type Option func(*Client) error

// WithLogger sets the logger used for connection milestones and
// worker errors. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithRegisterWindow overrides the total register/re-register retry
// window (default 15s) and the per-attempt timeout (default 5s).
func WithRegisterWindow(total, perAttempt time.Duration) Option {
	return func(c *Client) error {
		c.registerTotal = total
		c.registerAttempt = perAttempt
		return nil
	}
}

// WithKeepaliveInterval overrides the interval between keepalive
// rounds (default 5s). The pong wait of each round uses the register
// window's per-attempt and total timeouts (see WithRegisterWindow).
func WithKeepaliveInterval(interval time.Duration) Option {
	return func(c *Client) error {
		c.keepaliveInterval = interval
		return nil
	}
}
