package jobqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/btree"
)

// Queue is the intake, priority-selection, and lifecycle-event half of
// the scheduler. It owns exactly one RateLimiter and dispatches pending
// jobs onto goroutines whenever the rate limiter admits them.
type Queue struct {
	mu      sync.Mutex
	pending *btree.BTreeG[*jobEntry]
	started bool

	nextID  uint64
	nextSeq uint64

	limiter *RateLimiter
	events  *bus
	logger  *slog.Logger

	debugStop chan struct{}
}

// New constructs a Queue. With no options it runs in serial mode (at
// most one job in flight) and emits stats every 500ms once started.
func New(opts ...Option) (*Queue, error) {
	cfg := config{
		statsInterval: 500 * time.Millisecond,
		logger:        logger,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(&cfg); err != nil {
			return nil, err
		}
	}
	q := &Queue{
		pending: btree.NewG(32, lessJobEntry),
		logger:  cfg.logger,
		events:  newBus(),
	}
	q.limiter = newRateLimiter(cfg.rateLimit, cfg.statsInterval, q.events.emitStats, cfg.logger)
	return q, nil
}

// Push appends a job, returning a channel that receives the job's
// result exactly once on success. It never receives anything if the
// job fails: failure is observable only via the error event, and the
// returned channel is simply never resolved. If the queue is already
// started, Push triggers dispatch and (re)arms the stats timer.
func (q *Queue) Push(body Body, opts ...PushOption) (<-chan Result, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: job body must not be nil", ErrInvalidArgument)
	}
	po := PushOptions{Priority: DefaultPriority}
	for _, o := range opts {
		o(&po)
	}
	if po.Priority < MinPriority || po.Priority > MaxPriority {
		return nil, fmt.Errorf("%w: priority %d outside [%d,%d]", ErrInvalidArgument, po.Priority, MinPriority, MaxPriority)
	}

	q.mu.Lock()
	q.nextID++
	id := q.nextID
	q.nextSeq++
	seq := q.nextSeq
	entry := &jobEntry{
		id:       id,
		seq:      seq,
		priority: po.Priority,
		body:     body,
		done:     make(chan Result, 1),
	}
	if _, replaced := q.pending.ReplaceOrInsert(entry); replaced {
		q.mu.Unlock()
		logicError("duplicate job id inserted into pending set")
	}
	started := q.started
	q.mu.Unlock()

	if started {
		q.limiter.Toggle(true)
		q.maybeDispatch()
	}
	return entry.done, nil
}

// Start sets the queue to the running state, arms the stats timer, and
// runs one pass of the dispatch loop. It does not wait for any job to
// finish; calling it again while already started is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.limiter.Toggle(true)
	q.startDebugSummary()
	q.maybeDispatch()
}

// Pause stops new dispatch immediately and blocks until every
// currently in-flight job has completed, then disarms the stats timer.
// Jobs already running are never interrupted. New pushes are still
// accepted while paused; they simply wait for the next Start. Calling
// Pause while already paused is a no-op.
func (q *Queue) Pause(ctx context.Context) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	q.mu.Unlock()

	if err := q.limiter.WaitForDrain(ctx); err != nil {
		return err
	}
	q.limiter.Toggle(false)
	q.stopDebugSummary()
	return nil
}

// OnDone registers a handler invoked once per successfully completed
// job. Handlers for a single event fire in subscription order.
func (q *Queue) OnDone(handler func(DoneEvent)) { q.events.onDone(handler) }

// OnError registers a handler invoked once per failed job.
func (q *Queue) OnError(handler func(ErrorEvent)) { q.events.onError(handler) }

// OnDrain registers a handler invoked every time pending work and
// in-flight jobs both reach zero.
func (q *Queue) OnDrain(handler func(DrainEvent)) { q.events.onDrain(handler) }

// OnStats registers a handler invoked on each stats timer tick while
// the timer is armed: from Start, or a Push on a started queue, until
// the next drain or the end of a Pause.
func (q *Queue) OnStats(handler func(StatsEvent)) { q.events.onStats(handler) }

// Snapshot returns a point-in-time read of the rate limiter's
// accounting plus supplementary throughput/ETA diagnostics, alongside
// the current pending count.
func (q *Queue) Snapshot() (pending int, snap Snapshot) {
	q.mu.Lock()
	pending = q.pending.Len()
	q.mu.Unlock()
	return pending, q.limiter.Snapshot(pending)
}

// maybeDispatch is the dispatch-selection tick, invoked on push, start,
// and every job completion. It is re-entered in a loop until admission
// is refused or the queue drains; user event handlers are always
// invoked outside the queue's lock so a handler may safely call back
// into Push/Pause/Start.
func (q *Queue) maybeDispatch() {
	q.mu.Lock()
	drained := false
	blockedWithNoneInFlight := false
	for {
		if !q.started {
			break
		}
		if q.pending.Len() == 0 && q.limiter.Running() == 0 {
			drained = true
			break
		}
		if !q.limiter.MayAdmit() {
			blockedWithNoneInFlight = q.limiter.Running() == 0
			break
		}
		entry, ok := q.pending.DeleteMin()
		if !ok {
			break
		}
		q.limiter.JobStarted()
		go q.runJob(entry)
	}
	q.mu.Unlock()

	if drained {
		q.limiter.Toggle(false)
		q.stopDebugSummary()
		q.events.emitDrain(DrainEvent{})
		return
	}
	if blockedWithNoneInFlight {
		// Nothing in flight will emit the JobEnded event that would
		// otherwise re-invoke dispatch once the trailing window clears,
		// so schedule that wake-up ourselves.
		if d, ok := q.limiter.nextRetryAfter(); ok {
			time.AfterFunc(d, q.maybeDispatch)
		}
	}
}

// runJob executes one dispatched job body and reports its outcome.
func (q *Queue) runJob(entry *jobEntry) {
	result, err := entry.body()
	q.limiter.JobEnded()

	if err != nil {
		q.events.emitError(ErrorEvent{JobID: entry.id, Error: err})
	} else {
		q.events.emitDone(DoneEvent{JobID: entry.id, JobResult: result})
		select {
		case entry.done <- Result{ID: entry.id, Result: result}:
		default:
		}
	}
	q.maybeDispatch()
}

// startDebugSummary launches a coarse periodic debug log, every ten
// stats intervals but no more often than every 2s. It never emits a stats event and
// has no effect on drain detection.
func (q *Queue) startDebugSummary() {
	q.mu.Lock()
	if q.debugStop != nil {
		q.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	q.debugStop = stop
	interval := q.limiter.statsInterval * 10
	q.mu.Unlock()
	if interval < 2*time.Second {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
			pending, snap := q.Snapshot()
			q.logger.Debug("queue summary",
				slog.Int("pending", pending),
				slog.Int("running", snap.Running),
				slog.Int64("processed_since_arm", snap.ProcessedSinceArm),
			)
		}
	}()
}

func (q *Queue) stopDebugSummary() {
	q.mu.Lock()
	stop := q.debugStop
	q.debugStop = nil
	q.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}
