package jobqueue

import (
	"sync"
	"time"

	"golang.org/x/exp/constraints"
)

// sample is one point in a throughputSampler's ring buffer.
type sample[T constraints.Float] struct {
	value     T
	timestamp time.Time
}

// throughputSampler is a fixed-capacity ring buffer of cumulative
// counter samples, used to derive a smoothed rate and a linear ETA to a
// target value.
//
// It backs RateLimiter.Snapshot's supplementary diagnostics only; it
// never substitutes for the stats event's cumulative-average
// nbJobsPerSecond formula, which is computed independently in
// ratelimiter.go.
type throughputSampler[T constraints.Float] struct {
	mu           sync.RWMutex
	samples      []sample[T]
	capacity     int
	oldest, next int
}

func newThroughputSampler[T constraints.Float](capacity int) *throughputSampler[T] {
	if capacity < 2 {
		capacity = 2
	}
	return &throughputSampler[T]{
		samples:  make([]sample[T], capacity),
		capacity: capacity,
	}
}

// insert records a new cumulative total at the current time.
func (s *throughputSampler[T]) insert(total T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[s.next] = sample[T]{value: total, timestamp: time.Now()}
	if s.oldest == (s.next+1)%s.capacity {
		s.oldest = (s.oldest + 1) % s.capacity
	}
	s.next = (s.next + 1) % s.capacity
}

// rate returns the smoothed per-second rate of change over the samples
// currently held, or false if fewer than two samples are available.
func (s *throughputSampler[T]) rate() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oldest == s.next {
		return 0, false
	}
	newest := s.next - 1
	if newest < 0 {
		newest += s.capacity
	}
	period := s.samples[newest].timestamp.Sub(s.samples[s.oldest].timestamp)
	if period <= 0 {
		return 0, false
	}
	change := s.samples[newest].value - s.samples[s.oldest].value
	return float64(change) / period.Seconds(), true
}

// etaTo linearly extrapolates, from the held samples, how long it will
// take the tracked quantity to reach target. It returns false if there
// are fewer than two samples or the trend does not lead to target.
func (s *throughputSampler[T]) etaTo(target T) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.oldest == s.next {
		return 0, false
	}
	newest := s.next - 1
	if newest < 0 {
		newest += s.capacity
	}
	if s.oldest == newest {
		return 0, false
	}
	change := s.samples[newest].value - s.samples[s.oldest].value
	if change == 0 {
		return 0, false
	}
	if (change > 0) != (target > s.samples[newest].value) {
		return 0, false
	}
	period := s.samples[newest].timestamp.Sub(s.samples[s.oldest].timestamp)
	scale := float64(target-s.samples[newest].value) / float64(change)
	return time.Duration(float64(period) * scale), true
}

// Snapshot is a point-in-time read of a RateLimiter's accounting, for
// observability. It never drives scheduling decisions and has no
// influence on the required stats event payload.
type Snapshot struct {
	Running               int
	ProcessedSinceArm     int64
	RecentCompletions     int
	SmoothedJobsPerSecond float64
	HasSmoothedRate       bool
	ETAToDrain            time.Duration
	HasETA                bool
}
