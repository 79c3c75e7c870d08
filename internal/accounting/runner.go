package accounting

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/logger"
)

// DefaultTimeout bounds a single accounting command.
const DefaultTimeout = 60 * time.Second

// Runner executes an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with the given per-call timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout}
}

// Run executes name with args and returns stdout.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := append([]string{name}, args...)
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Error("Timeout executing accounting command", "cmd", name, "timeout", timeout)
			return nil, &CollectorTimeoutError{Command: command, Timeout: timeout}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			err = nil
		}
		logger.Error("Error executing accounting command",
			"cmd", name, "exit", exitCode, "err", stderr.String())
		return nil, &SubprocessError{
			Command:  command,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	logger.Debug("Accounting command finished", "cmd", name, "args", args, "elapsed", time.Since(start))
	return stdout.Bytes(), nil
}
