package jobqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiter is the admission-control half of the queue: it decides
// whether another job may start right now, tracks how many are
// currently in flight, and emits throughput stats on a periodic timer
// while armed. A Queue owns exactly one RateLimiter for its lifetime.
type RateLimiter struct {
	mu sync.Mutex

	rateLimit     *int // nil means serial mode: at most one job in flight
	statsInterval time.Duration

	running           int
	recentCompletions []time.Time

	processedSinceStart int64
	totalProcessed      int64
	lastStartTime       time.Time

	armed    bool
	stopTick chan struct{}

	drainWaiters []chan struct{}

	sampler *throughputSampler[float64]
	onStats func(StatsEvent)
	logger  *slog.Logger
}

func newRateLimiter(rateLimit *int, statsInterval time.Duration, onStats func(StatsEvent), logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rateLimit:         rateLimit,
		statsInterval:     statsInterval,
		recentCompletions: make([]time.Time, 0, 16),
		sampler:           newThroughputSampler[float64](64),
		onStats:           onStats,
		logger:            logger,
	}
}

// MayAdmit reports whether a new job may start now: in serial mode,
// iff nothing is running; otherwise iff running plus the count of
// completions within the trailing 1000ms is below the limit.
func (r *RateLimiter) MayAdmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rateLimit == nil {
		return r.running == 0
	}
	r.evictOldLocked(time.Now())
	return r.running+len(r.recentCompletions) < *r.rateLimit
}

// evictOldLocked drops completion timestamps older than the trailing
// 1-second window. Called with mu held.
func (r *RateLimiter) evictOldLocked(now time.Time) {
	cutoff := now.Add(-time.Second)
	i := 0
	for ; i < len(r.recentCompletions); i++ {
		if r.recentCompletions[i].After(cutoff) {
			break
		}
	}
	if i > 0 {
		r.recentCompletions = append(r.recentCompletions[:0], r.recentCompletions[i:]...)
	}
}

// JobStarted records that a dispatched job has begun running. The
// caller (Queue) must only call this immediately after MayAdmit
// returned true, under the same serialization that protects the
// pending set.
func (r *RateLimiter) JobStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running++
	r.processedSinceStart++
	r.totalProcessed++
	r.sampler.insert(float64(r.totalProcessed))
}

// JobEnded records that an in-flight job (success or failure alike — a
// failed job still occupied a slot) has completed, and wakes anyone
// blocked in WaitForDrain if this was the last one.
func (r *RateLimiter) JobEnded() {
	r.mu.Lock()
	r.running--
	if r.running < 0 {
		r.mu.Unlock()
		logicError("running count dropped below zero")
	}
	now := time.Now()
	r.recentCompletions = append(r.recentCompletions, now)
	r.evictOldLocked(now)
	var waiters []chan struct{}
	if r.running == 0 {
		waiters = r.drainWaiters
		r.drainWaiters = nil
	}
	r.mu.Unlock()
	for _, ch := range waiters {
		close(ch)
	}
}

// nextRetryAfter reports how long until the oldest trailing-window
// completion ages out, for the case where MayAdmit refused admission
// but nothing is currently running to produce the JobEnded event that
// would otherwise re-invoke dispatch. It returns false in serial mode
// or when no completion is pending eviction.
func (r *RateLimiter) nextRetryAfter() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rateLimit == nil || len(r.recentCompletions) == 0 {
		return 0, false
	}
	d := time.Until(r.recentCompletions[0].Add(time.Second))
	if d < 0 {
		d = 0
	}
	return d, true
}

// Running returns the current in-flight count.
func (r *RateLimiter) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Toggle idempotently arms or disarms the stats timer. Arming records
// the new epoch (lastStartTime, processedSinceStart = 0)
// and starts a goroutine ticking at statsInterval; disarming stops it.
// stats is never emitted while disarmed.
func (r *RateLimiter) Toggle(enable bool) {
	r.mu.Lock()
	if enable == r.armed {
		r.mu.Unlock()
		return
	}
	r.armed = enable
	if enable {
		r.lastStartTime = time.Now()
		r.processedSinceStart = 0
		stop := make(chan struct{})
		r.stopTick = stop
		interval := r.statsInterval
		r.mu.Unlock()
		go r.tick(stop, interval)
		return
	}
	stop := r.stopTick
	r.stopTick = nil
	r.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

// tick runs the periodic stats emission while armed: a free-running
// ticker goroutine guarded by a stop channel.
func (r *RateLimiter) tick(stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		r.mu.Lock()
		elapsed := time.Since(r.lastStartTime)
		processed := r.processedSinceStart
		r.mu.Unlock()
		if elapsed <= 0 {
			continue
		}
		// Cumulative average since the stats timer was last armed, not
		// a rolling window — this can run high on early ticks after a
		// burst.
		rate := 1000 * float64(processed) / float64(elapsed.Milliseconds())
		if r.onStats != nil {
			r.onStats(StatsEvent{NbJobsPerSecond: rate})
		}
	}
}

// WaitForDrain resolves immediately if nothing is running, or the next
// time the in-flight count drops to zero. It respects ctx cancellation;
// cancelling it does not affect in-flight jobs, only the wait itself.
func (r *RateLimiter) WaitForDrain(ctx context.Context) error {
	r.mu.Lock()
	if r.running == 0 {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.drainWaiters = append(r.drainWaiters, ch)
	r.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot reports a point-in-time view of the limiter's accounting
// plus supplementary, non-authoritative diagnostics (smoothed
// throughput and a linear ETA to drain the currently pending count).
// It has no bearing on the stats event's nbJobsPerSecond formula and
// exists purely for observability.
func (r *RateLimiter) Snapshot(pending int) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictOldLocked(time.Now())
	snap := Snapshot{
		Running:           r.running,
		ProcessedSinceArm: r.processedSinceStart,
		RecentCompletions: len(r.recentCompletions),
	}
	if rate, ok := r.sampler.rate(); ok && rate > 0 {
		snap.SmoothedJobsPerSecond = rate
		snap.HasSmoothedRate = true
		if eta, ok := r.sampler.etaTo(float64(r.totalProcessed) + float64(pending)); ok {
			snap.ETAToDrain = eta
			snap.HasETA = true
		}
	}
	return snap
}
