package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/arrowstack/jobqueue"
)

// commandResult is the successful Result value delivered by a job's
// done event: the command line that ran, its combined output, and how
// long it took.
type commandResult struct {
	Command  RenderedCommand
	Output   string
	Duration time.Duration
}

// makeJobBody turns one rendered command line into a jobqueue.Body:
// run it as a subprocess, capture combined stdout+stderr, and report
// success/failure the way the job body contract requires.
func makeJobBody(ctx context.Context, opts Opts, command RenderedCommand, registry *processRegistry) jobqueue.Body {
	return func() (any, error) {
		start := time.Now()
		cmd := exec.CommandContext(ctx, command[0], command[1:]...)
		createNewProcessGroup(cmd)

		var buf bytes.Buffer
		stdout := []io.Writer{&buf}
		stderr := []io.Writer{&buf}
		if opts.ShowStdout {
			stdout = append(stdout, os.Stdout)
		}
		if opts.ShowStderr {
			stderr = append(stderr, os.Stderr)
		}
		cmd.Stdout = io.MultiWriter(stdout...)
		cmd.Stderr = io.MultiWriter(stderr...)

		token := registry.add(cmd)
		defer registry.remove(token)

		err := cmd.Run()
		elapsed := time.Since(start)
		output := buf.String()

		if err != nil {
			logger.Debug("command failed", slog.Any("command", command), slog.String("elapsed", elapsed.String()), slog.Any("error", err))
			return nil, fmt.Errorf("%v: %w", command, err)
		}
		logger.Debug("command succeeded", slog.Any("command", command), slog.String("elapsed", elapsed.String()))
		return commandResult{Command: command, Output: output, Duration: elapsed}, nil
	}
}
