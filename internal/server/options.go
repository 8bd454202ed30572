package server

import (
	"log/slog"
	"time"
)

// Option configures a Server at construction time, following the same
// functional-options pattern the mDNS responder this package descends
// from used for its own configuration surface.
type Option func(*Server) error

// WithLogger sets the logger used for connection and forwarding
// events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithLeaseTTL sets how long a connection may go unseen before Purge
// reclaims its lease. Defaults to 200 seconds.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(s *Server) error {
		s.leaseTTL = ttl
		return nil
	}
}

// WithPurgeInterval sets how often the purge sweep runs. Defaults to
// 100 seconds.
func WithPurgeInterval(interval time.Duration) Option {
	return func(s *Server) error {
		s.purgeInterval = interval
		return nil
	}
}
