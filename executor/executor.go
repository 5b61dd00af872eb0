// Package executor runs external commands (mostly the git binary) with retry
// logic, output capture, environment management and lazy line streaming.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Arbin-com/github-upload/logstream"
)

// Result holds the output and error from a command execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

// CommandExecutor runs one command line.
type CommandExecutor struct {
	program string
	args    []string
	options *Options
}

// Options configures command execution behavior
type Options struct {
	// Retry configuration. Lines never retries once output was produced.
	MaxRetries int
	RetryDelay time.Duration
	RetryOn    func(error) bool

	// Working directory
	WorkingDir string

	// Environment variables (appended to current env)
	Env map[string]string

	Logger *slog.Logger
}

// Option is a function that modifies Options
type Option func(*Options)

// DefaultOptions returns default execution options
func DefaultOptions() *Options {
	return &Options{
		RetryDelay: time.Second,
		Env:        make(map[string]string),
	}
}

// New creates a new CommandExecutor
func New(program string, args ...string) *CommandExecutor {
	return &CommandExecutor{
		program: program,
		args:    args,
		options: DefaultOptions(),
	}
}

// WrappedExecutor provides a clean interface for a specific program
type WrappedExecutor struct {
	program string
	options *Options
}

// NewWrappedExecutor creates an executor for a specific program. opts become
// the defaults of every command.
func NewWrappedExecutor(program string, opts ...Option) *WrappedExecutor {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &WrappedExecutor{program: program, options: o}
}

// Command creates a new executor for the wrapped program with specific arguments
func (w *WrappedExecutor) Command(args ...string) *CommandExecutor {
	return &CommandExecutor{
		program: w.program,
		args:    args,
		options: w.options,
	}
}

// Execute runs the command with the wrapped program
func (w *WrappedExecutor) Execute(ctx context.Context, args []string, opts ...Option) (*Result, error) {
	result, err := w.Command(args...).Execute(ctx, opts...)
	if err != nil {
		return result, fmt.Errorf("failed to execute %s %v: %w", w.program, args, err)
	}
	return result, nil
}

// String renders the command line.
func (c *CommandExecutor) String() string {
	return strings.Join(append([]string{c.program}, c.args...), " ")
}

// Execute runs the command to completion, capturing stdout and stderr.
func (c *CommandExecutor) Execute(ctx context.Context, opts ...Option) (*Result, error) {
	options := c.mergeOptions(opts...)
	logger := options.logger()

	maxAttempts := options.MaxRetries + 1
	for attempt := 1; ; attempt++ {
		result, err := c.executeOnce(ctx, options)
		if err == nil || attempt >= maxAttempts {
			return result, err
		}

		if options.RetryOn != nil && !options.RetryOn(err) {
			return result, err
		}

		logger.Debug("retrying command", "command", c.String(), "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return result, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(options.RetryDelay):
		}
	}
}

// Lines starts the command and streams its stdout lazily. Stopping the
// iteration kills the process. A failing exit status is reported as the last
// element with the tail of stderr in the message.
func (c *CommandExecutor) Lines(ctx context.Context, opts ...Option) iter.Seq2[string, error] {
	options := c.mergeOptions(opts...)

	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		cmd := exec.CommandContext(ctx, c.program, c.args...)
		c.setupCommand(cmd, options)

		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield("", fmt.Errorf("stdout pipe: %w", err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield("", fmt.Errorf("command start failed: %w", err))
			return
		}
		options.logger().Debug("streaming command", "command", c.String())

		stopped := false
		for line, err := range logstream.ReadLines(stdout) {
			if err != nil {
				stopped = !yield("", err)
				break
			}
			if !yield(line, nil) {
				stopped = true
				break
			}
		}

		if stopped {
			cancel()
			_ = cmd.Wait()
			return
		}
		if err := cmd.Wait(); err != nil {
			yield("", commandError(err, stderr.String()))
		}
	}
}

// setupCommand sets the working directory and environment of cmd.
func (c *CommandExecutor) setupCommand(cmd *exec.Cmd, options *Options) {
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
}

func (c *CommandExecutor) executeOnce(ctx context.Context, options *Options) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.program, c.args...)
	c.setupCommand(cmd, options)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return result, nil
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}
	return result, commandError(err, result.Stderr)
}

// commandError wraps err with the last "fatal:" or "error:" line of stderr,
// or its last line when there is none. git prints hints after the failure.
func commandError(err error, stderr string) error {
	stderr = failureLine(stderr)
	if stderr == "" {
		return fmt.Errorf("command execution failed: %w", err)
	}
	return fmt.Errorf("command execution failed: %s: %w", stderr, err)
}

func failureLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "fatal:") || strings.HasPrefix(line, "error:") {
			return line
		}
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

func (c *CommandExecutor) mergeOptions(opts ...Option) *Options {
	merged := *c.options
	merged.Env = make(map[string]string, len(c.options.Env))
	for k, v := range c.options.Env {
		merged.Env[k] = v
	}

	for _, opt := range opts {
		opt(&merged)
	}
	return &merged
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// WithRetry configures retry behavior
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(o *Options) {
		o.MaxRetries = maxRetries
		o.RetryDelay = delay
	}
}

// WithRetryCondition sets a custom retry condition
func WithRetryCondition(fn func(error) bool) Option {
	return func(o *Options) {
		o.RetryOn = fn
	}
}

// WithWorkingDir sets the working directory
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithEnv adds environment variables
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithLogger sets the logger used for retries and streaming
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
