// Package procexec runs external commands with a deadline and classifies how
// they ended.
package procexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout is returned when a command outlives its deadline.
var ErrTimeout = errors.New("command timeout")

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// LineSink receives stdout lines while a command is still running. It is
// for progress display only; the payload is always taken from Result.
type LineSink func(line string)

// Result holds the captured output of a finished command.
type Result struct {
	Command  string
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner starts commands. The zero value is usable and applies no timeout of
// its own beyond the caller's context.
type Runner struct {
	Timeout time.Duration
	Dir     string
	Env     []string
	Logger  *zap.Logger
}

// NewRunner creates a Runner with a per-command timeout.
func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Timeout: timeout, Logger: logger}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) command(ctx context.Context, name string, args []string) (context.Context, *exec.Cmd, context.CancelFunc) {
	cancel := context.CancelFunc(func() {})
	if r.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = r.Env
	}
	return ctx, cmd, cancel
}

// Run executes name with args and captures stdout and stderr. The returned
// error is ErrTimeout (wrapped) on deadline, *ExitError on non-zero exit, or
// the start error when the binary could not be launched. Result is filled in
// as far as the command got in every case.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	ctx, cmd, cancel := r.command(ctx, name, args)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Command:  name,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: exitCode(cmd),
		Duration: time.Since(start),
	}

	if err = r.classify(ctx, cmd, err, res.Stderr); err != nil {
		r.logger().Debug("command failed",
			zap.String("command", name),
			zap.Duration("duration", res.Duration),
			zap.Error(err),
		)
	}
	return res, err
}

// Stream executes name with args and hands every stdout line to sink as it
// arrives. Stdout is also collected into Result the same way Run does.
func (r *Runner) Stream(ctx context.Context, sink LineSink, name string, args ...string) (Result, error) {
	ctx, cmd, cancel := r.command(ctx, name, args)
	defer cancel()

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{Command: name, Args: args}, fmt.Errorf("stdout pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{Command: name, Args: args}, fmt.Errorf("start %s: %w", name, err)
	}

	var stdout strings.Builder
	scanErr := scanLines(pipe, func(line string) {
		stdout.WriteString(line)
		stdout.WriteByte('\n')
		if sink != nil {
			sink(line)
		}
	})
	err = cmd.Wait()
	res := Result{
		Command:  name,
		Args:     args,
		Stdout:   stdout.String(),
		Stderr:   strings.TrimSpace(stderr.String()),
		ExitCode: exitCode(cmd),
		Duration: time.Since(start),
	}

	if err = r.classify(ctx, cmd, err, res.Stderr); err != nil {
		return res, err
	}
	if scanErr != nil {
		return res, fmt.Errorf("read stdout: %w", scanErr)
	}
	return res, nil
}

func scanLines(rd io.Reader, onLine func(string)) error {
	sc := bufio.NewScanner(rd)
	// stream-json 单行可能很长
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		onLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		// 继续读空管道，避免子进程因写满而阻塞
		_, _ = io.Copy(io.Discard, rd)
		return err
	}
	return nil
}

func (r *Runner) classify(ctx context.Context, cmd *exec.Cmd, err error, stderr string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %s", ErrTimeout, r.Timeout, cmd.Path)
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode(), Stderr: stderr}
	}
	return fmt.Errorf("start %s: %w", cmd.Path, err)
}

func exitCode(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}

// IsTimeout reports whether err came from a command deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsExit reports whether err is a non-zero exit and returns it.
func IsExit(err error) (*ExitError, bool) {
	var e *ExitError
	ok := errors.As(err, &e)
	return e, ok
}
