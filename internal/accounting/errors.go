package accounting

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrSubprocess is returned when an accounting command cannot run or exits non-zero.
	ErrSubprocess = errors.New("accounting command failed")
	// ErrCollectorTimeout is returned when an accounting command exceeds its deadline.
	ErrCollectorTimeout = errors.New("accounting command timed out")
	// ErrUnparseableOutput is returned when command output does not have the expected shape.
	ErrUnparseableOutput = errors.New("unparseable accounting output")
	// ErrUserMismatch is returned when accounting users and roster users differ.
	ErrUserMismatch = errors.New("accounting users do not match roster")
)

// SubprocessError describes a failed accounting command.
type SubprocessError struct {
	Command  []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *SubprocessError) Error() string {
	msg := fmt.Sprintf("%s: %q", ErrSubprocess, strings.Join(e.Command, " "))
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" exited with status %d", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *SubprocessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSubprocess}
	}
	return []error{ErrSubprocess, e.Err}
}

// CollectorTimeoutError reports a command killed by its deadline.
type CollectorTimeoutError struct {
	Command []string
	Timeout time.Duration
}

func (e *CollectorTimeoutError) Error() string {
	return fmt.Sprintf("%s after %s: %q", ErrCollectorTimeout, e.Timeout, strings.Join(e.Command, " "))
}

func (e *CollectorTimeoutError) Unwrap() error {
	return ErrCollectorTimeout
}

// UserMismatchError lists the usernames present on only one side of a comparison.
type UserMismatchError struct {
	// Scope names what was compared, e.g. a project code or "accinfo".
	Scope      string
	Unexpected []string
	Missing    []string
}

func (e *UserMismatchError) Error() string {
	var parts []string
	if len(e.Unexpected) > 0 {
		parts = append(parts, "not in roster: "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "not in accounting: "+strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s (%s): %s", ErrUserMismatch, e.Scope, strings.Join(parts, "; "))
}

func (e *UserMismatchError) Unwrap() error {
	return ErrUserMismatch
}
