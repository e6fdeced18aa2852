// Package invoke runs external analysis tools and captures their output.
package invoke

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
)

// DefaultTimeout bounds a single tool run when none is configured.
const DefaultTimeout = 30 * time.Minute

// Command describes one external tool run.
type Command struct {
	// Name labels the command in logs and errors.
	Name string
	// Path is the executable to run.
	Path string
	Args []string
	// Stdin, when set, is written to the process's standard input.
	Stdin string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
	// AcceptExitCodes lists exit statuses treated as success besides 0.
	AcceptExitCodes []int
}

// String renders the command as a shell-quoted line.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// Accepts reports whether code counts as a successful exit.
func (c Command) Accepts(code int) bool {
	if code == 0 {
		return true
	}
	for _, ok := range c.AcceptExitCodes {
		if ok == code {
			return true
		}
	}
	return false
}

// Result holds the captured streams of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Invoker executes commands. Implementations return an error when the
// command could not run, timed out, or exited with a status it does not accept.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (*Result, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, cmd Command) (*Result, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, cmd Command) (*Result, error) {
	return f(ctx, cmd)
}

// ExecInvoker runs commands as local processes.
type ExecInvoker struct {
	// Timeout bounds each run; zero means DefaultTimeout.
	Timeout time.Duration
}

// Invoke runs cmd and waits for it to finish.
func (e *ExecInvoker) Invoke(ctx context.Context, cmd Command) (*Result, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(timeoutCtx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	// Tools launched through wrapper scripts leave children holding the
	// output pipes; stop waiting for them shortly after the kill.
	c.WaitDelay = 5 * time.Second
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return res, errors.Newf("%s timed out after %v", label(cmd), timeout)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if cmd.Accepts(res.ExitCode) {
				return res, nil
			}
			return res, errors.Newf("%s exited with status %d\nstderr: %s", label(cmd), res.ExitCode, tail(stderr.Bytes()))
		}
		return res, errors.Wrapf(err, "%s could not be started", label(cmd))
	}
	return res, nil
}

func label(cmd Command) string {
	if cmd.Name != "" {
		return cmd.Name
	}
	return cmd.Path
}

// tail keeps the end of long diagnostic output.
func tail(b []byte) string {
	const max = 4096
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
