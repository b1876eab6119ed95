package jobqueue

import (
	"fmt"
	"log/slog"
	"time"
)

// config accumulates the result of applying Options to New.
type config struct {
	rateLimit     *int // nil means serial mode
	statsInterval time.Duration
	logger        *slog.Logger
}

// Option configures a Queue at construction time.
type Option func(*config) error

// WithRateLimit switches the queue to rate-limited mode: at most n jobs
// may start within any rolling 1000ms window. n must be positive.
func WithRateLimit(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: rate limit must be positive, got %d", ErrInvalidArgument, n)
		}
		c.rateLimit = &n
		return nil
	}
}

// WithSerialMode selects serial mode: at most one job in flight. This
// is the default, and is provided mainly for readability at call sites
// that want to say so explicitly.
func WithSerialMode() Option {
	return func(c *config) error {
		c.rateLimit = nil
		return nil
	}
}

// WithStatsInterval sets the cadence of stats events once the queue is
// started. The default is 500ms. d must be positive.
func WithStatsInterval(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("%w: stats interval must be positive, got %s", ErrInvalidArgument, d)
		}
		c.statsInterval = d
		return nil
	}
}

// WithLogger overrides the package-default trace/debug sink for this
// queue only. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

// PushOptions configures a single Push call.
type PushOptions struct {
	Priority int
}

// PushOption configures a single Push call.
type PushOption func(*PushOptions)

// WithPriority sets the job's priority; 1 is highest, 10 is lowest
// (and the default if this option is omitted).
func WithPriority(p int) PushOption {
	return func(o *PushOptions) { o.Priority = p }
}
