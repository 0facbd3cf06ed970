// Package script runs kvm-manager.sh once per request with a synthesized
// standard input and captures what it prints.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/OliverMao/kvm-manager/internal/logging"
	"github.com/OliverMao/kvm-manager/internal/metrics"
)

// waitDelay bounds how long Run waits for the output pipes to drain after
// the process has been killed on timeout. Children of the script that keep
// the pipes open would otherwise block Run forever.
const waitDelay = 5 * time.Second

var (
	// ErrNotFound is returned when the script does not exist.
	ErrNotFound = errors.New("script not found")

	// ErrNotExecutable is returned by Check when the script lacks an
	// execute bit.
	ErrNotExecutable = errors.New("script is not executable")
)

// Options configures a Runner.
type Options struct {
	// Path is the absolute path of the script.
	Path string

	// WorkDir is the working directory of the process. Defaults to the
	// directory containing Path.
	WorkDir string

	// Timeout kills the process when exceeded. Zero waits forever.
	Timeout time.Duration

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// Result is what one invocation produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Failed reports whether the script exited non-zero or was killed.
func (r *Result) Failed() bool {
	return r.ExitCode != 0 || r.TimedOut
}

// Runner launches the script. It holds no per-invocation state and is safe
// for concurrent use.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Dir(opts.Path)
	}
	return &Runner{opts: opts}
}

// Path returns the script path the runner executes.
func (r *Runner) Path() string {
	return r.opts.Path
}

// Run starts the script, writes input to its stdin and waits for it to exit.
//
// action labels the invocation in logs and metrics. A non-zero exit status
// or a timeout is reported through Result, not as an error; an error means
// the process could not be started at all.
//
// Cancellation of ctx does not kill the process: an interrupted lifecycle
// operation would leave the host half-configured. Only the configured
// Timeout does.
func (r *Runner) Run(ctx context.Context, action, input string) (*Result, error) {
	logger := logging.FromContext(ctx).With("action", action, "script", r.opts.Path)

	runCtx := context.WithoutCancel(ctx)
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, r.opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.opts.Path)
	cmd.Dir = r.opts.WorkDir
	cmd.Stdin = strings.NewReader(input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	if len(r.opts.Env) > 0 {
		cmd.Env = append(os.Environ(), r.opts.Env...)
	}

	metrics.ScriptInFlight.Inc()
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)
	metrics.ScriptInFlight.Dec()
	metrics.ScriptDuration.WithLabelValues(action).Observe(elapsed.Seconds())

	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			res.TimedOut = true
			res.ExitCode = -1
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		case errors.Is(err, fs.ErrNotExist):
			metrics.ScriptInvocations.WithLabelValues(action, metrics.OutcomeStartErr).Inc()
			logger.Error("script not found", "error", err)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, r.opts.Path)
		default:
			metrics.ScriptInvocations.WithLabelValues(action, metrics.OutcomeStartErr).Inc()
			logger.Error("failed to start script", "error", err)
			return nil, fmt.Errorf("failed to run %s: %w", r.opts.Path, err)
		}
	}

	outcome := metrics.OutcomeOK
	switch {
	case res.TimedOut:
		outcome = metrics.OutcomeTimeout
		logger.Warn("script timed out", "timeout", r.opts.Timeout, "duration", elapsed)
	case res.ExitCode != 0:
		outcome = metrics.OutcomeNonZero
		logger.Warn("script exited non-zero", "exit_code", res.ExitCode, "duration", elapsed)
	default:
		logger.Info("script finished", "duration", elapsed, "stdout_bytes", stdout.Len())
	}
	metrics.ScriptInvocations.WithLabelValues(action, outcome).Inc()

	return res, nil
}

// Check verifies that the script exists, is a regular file and carries an
// execute bit.
func (r *Runner) Check() error {
	info, err := os.Stat(r.opts.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, r.opts.Path)
		}
		return fmt.Errorf("failed to stat %s: %w", r.opts.Path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", r.opts.Path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrNotExecutable, r.opts.Path)
	}
	return nil
}
