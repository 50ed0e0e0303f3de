// SPDX-License-Identifier: MIT

// Package ffmpeg runs the ffmpeg binary to completion for the transcode and
// frame-extraction adapters. Cancellation kills the whole process group, so
// ffmpeg's forked helpers never outlive a session.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reeldoc/reeldoc/internal/log"
	"github.com/reeldoc/reeldoc/internal/metrics"
	"github.com/reeldoc/reeldoc/internal/procgroup"
)

// DefaultGrace is how long a cancelled run may take to exit after SIGTERM
// before it is killed.
const DefaultGrace = 5 * time.Second

// Runner executes one ffmpeg invocation at a time to completion.
type Runner struct {
	bin    string
	grace  time.Duration
	logger zerolog.Logger
}

// NewRunner creates a runner for the given binary path ("ffmpeg" when empty).
func NewRunner(bin string) *Runner {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Runner{
		bin:    bin,
		grace:  DefaultGrace,
		logger: log.WithComponent("ffmpeg"),
	}
}

// Bin returns the configured binary path.
func (r *Runner) Bin() string {
	return r.bin
}

// Available verifies the binary can be resolved on PATH.
func (r *Runner) Available() error {
	if _, err := exec.LookPath(r.bin); err != nil {
		return fmt.Errorf("ffmpeg binary not found: %w", err)
	}
	return nil
}

// Run executes the binary with args and waits for completion. On context
// cancellation the process group receives SIGTERM, then SIGKILL after the
// grace window, and ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := log.WithTraceContext(ctx, r.logger)

	cmd := exec.Command(r.bin, args...) // #nosec G204 -- args are built by our arg builders, not caller input
	procgroup.Set(cmd)

	ring := NewLineRing(64)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.bin, err)
	}

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			ring.Add(strings.TrimSpace(scanner.Text()))
		}
	}()

	done := make(chan error, 1)
	go func() {
		<-scanDone // Wait must not race the pipe reader
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		elapsed := time.Since(start)
		if err != nil {
			metrics.IncProcWait("exit_nonzero")
			tail := strings.Join(ring.LastN(5), " | ")
			logger.Error().
				Err(err).
				Dur("elapsed", elapsed).
				Str("stderr_tail", tail).
				Msg("ffmpeg run failed")
			if tail != "" {
				return fmt.Errorf("%s failed: %w (stderr: %s)", r.bin, err, tail)
			}
			return fmt.Errorf("%s failed: %w", r.bin, err)
		}
		metrics.IncProcWait("exit0")
		logger.Debug().
			Dur("elapsed", elapsed).
			Msg("ffmpeg run complete")
		return nil

	case <-ctx.Done():
		if err := procgroup.Terminate(cmd, done, r.grace); err != nil {
			logger.Warn().Err(err).Msg("ffmpeg terminate after cancel")
		}
		return ctx.Err()
	}
}

// WithGrace overrides the termination grace window.
func (r *Runner) WithGrace(grace time.Duration) *Runner {
	r.grace = grace
	return r
}
