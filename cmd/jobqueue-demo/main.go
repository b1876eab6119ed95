// Command jobqueue-demo drives an external command once per line (or
// CSV row, or JSON object) of stdin, using jobqueue to schedule and
// rate-limit the resulting subprocesses.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/lmittmann/tint"
	"golang.org/x/time/rate"

	"github.com/arrowstack/jobqueue"
)

var logger *slog.Logger

// errInterrupted marks a run that ended early because the operator
// pressed Ctrl-C, as opposed to a command failure.
var errInterrupted = errors.New("interrupted")

func main() {
	var opts Opts
	commandLine, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	handlerOptions := tint.Options{Level: slog.LevelInfo}
	if opts.Debug {
		handlerOptions.Level = slog.LevelDebug
		handlerOptions.AddSource = true
	}
	logger = slog.New(tint.NewHandler(os.Stdout, &handlerOptions))
	jobqueue.SetLogger(logger)

	if len(commandLine) == 0 {
		if opts.CSV || opts.JsonLine {
			commandLine = []string{"echo", "foo is {{.foo}}, bar is {{.bar}}"}
		} else {
			commandLine = []string{"echo", "value is {{.value}}"}
		}
		logger.Info("no command was provided, so just echoing the input", slog.Any("commandline", commandLine))
	}

	templ, err := ParseCommandline(commandLine)
	if err != nil {
		logger.Error("could not parse the commandline", slog.Any("error", err))
		os.Exit(1)
	}

	var generator Generator
	switch {
	case opts.JsonLine:
		generator = JsonLineGenerator
	case opts.CSV:
		generator = CsvGenerator
	default:
		generator = SimpleLineGenerator
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	interrupts := make(chan os.Signal, 4)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	registry := newProcessRegistry()
	watchInterrupts(interrupts, registry, cancel)

	queueOpts := []jobqueue.Option{}
	switch {
	case opts.Serial:
		queueOpts = append(queueOpts, jobqueue.WithSerialMode())
	case opts.RateLimit > 0:
		queueOpts = append(queueOpts, jobqueue.WithRateLimit(opts.RateLimit))
	default:
		queueOpts = append(queueOpts, jobqueue.WithRateLimit(max(opts.Concurrency, 1)))
	}
	if opts.StatsInterval != nil {
		queueOpts = append(queueOpts, jobqueue.WithStatsInterval(*opts.StatsInterval))
	}

	q, err := jobqueue.New(queueOpts...)
	if err != nil {
		logger.Error("could not construct the queue", slog.Any("error", err))
		os.Exit(1)
	}

	var succeeded, failed int64
	var mu sync.Mutex
	q.OnDone(func(e jobqueue.DoneEvent) {
		mu.Lock()
		succeeded++
		mu.Unlock()
		logger.Debug("job succeeded", slog.Uint64("id", e.JobID))
	})
	q.OnError(func(e jobqueue.ErrorEvent) {
		mu.Lock()
		failed++
		mu.Unlock()
		logger.Warn("job failed", slog.Uint64("id", e.JobID), slog.Any("error", e.Error))
	})
	q.OnStats(func(e jobqueue.StatsEvent) {
		logger.Info("stats", slog.Float64("jobs_per_second", e.NbJobsPerSecond))
	})
	drained := make(chan struct{}, 1)
	q.OnDrain(func(jobqueue.DrainEvent) {
		select {
		case drained <- struct{}{}:
		default:
		}
	})

	// submitLimiter throttles how fast stdin is turned into pushed jobs,
	// separately from the queue's own admission rate limit: it paces
	// production, not dispatch.
	var submitLimiter *rate.Limiter
	if opts.SubmitRate > 0 {
		submitLimiter = rate.NewLimiter(rate.Limit(opts.SubmitRate), max(int(opts.SubmitRate), 1))
	}

	reader := bufio.NewReader(os.Stdin)
	pushed := 0
	for args := range generator(ctx, cancel, reader) {
		if submitLimiter != nil {
			if err := submitLimiter.Wait(ctx); err != nil {
				break
			}
		}
		renderedCommand, err := Render(templ, args)
		if err != nil {
			logger.Warn("could not render a command from this input", slog.Any("args", args), slog.Any("error", err))
			continue
		}
		// Subprocesses must outlive the first interrupt (which cancels
		// ctx); later interrupts reach them through the registry.
		body := makeJobBody(context.WithoutCancel(ctx), opts, renderedCommand, registry)
		if _, err := q.Push(body); err != nil {
			logger.Error("could not push job", slog.Any("error", err))
			continue
		}
		pushed++
	}

	if pushed == 0 {
		logger.Info("no commands were generated from stdin")
		os.Exit(0)
	}

	// Only start dispatching once every generated command has been
	// pushed, so the queue cannot fire a spurious empty drain event
	// before any job has had a chance to run.
	q.Start()

	select {
	case <-drained:
	case <-ctx.Done():
	}
	if err := q.Pause(context.Background()); err != nil {
		logger.Error("error waiting for in-flight jobs", slog.Any("error", err))
	}

	mu.Lock()
	s, f := succeeded, failed
	mu.Unlock()
	logger.Info(fmt.Sprintf("finished: %d succeeded, %d failed, %d total", s, f, pushed))

	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		os.Exit(1)
	}
	if f > 0 {
		os.Exit(1)
	}
}
