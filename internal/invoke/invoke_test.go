package invoke

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sh(script string, accept ...int) Command {
	return Command{Name: "sh", Path: "/bin/sh", Args: []string{"-c", script}, AcceptExitCodes: accept}
}

func TestExecInvokerCapturesStreams(t *testing.T) {
	inv := &ExecInvoker{}
	res, err := inv.Invoke(context.Background(), sh("echo out; echo err >&2"))
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, "err\n", string(res.Stderr))
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecInvokerStdinAndDir(t *testing.T) {
	dir := t.TempDir()
	cmd := Command{Path: "/bin/sh", Args: []string{"-c", "cat; pwd"}, Stdin: "hello\n", Dir: dir, Env: []string{"MCARPET_TEST=1"}}
	res, err := (&ExecInvoker{}).Invoke(context.Background(), cmd)
	require.NoError(t, err)
	assert.Contains(t, string(res.Stdout), "hello\n")
	assert.Contains(t, string(res.Stdout), dir)
}

func TestExecInvokerExitCodes(t *testing.T) {
	inv := &ExecInvoker{}

	res, err := inv.Invoke(context.Background(), sh("echo violations; exit 4", 4))
	require.NoError(t, err)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "violations\n", string(res.Stdout))

	_, err = inv.Invoke(context.Background(), sh("echo boom >&2; exit 2", 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 2")
	assert.Contains(t, err.Error(), "boom")
}

func TestExecInvokerMissingExecutable(t *testing.T) {
	_, err := (&ExecInvoker{}).Invoke(context.Background(), Command{Path: "/nonexistent/tool"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be started")
}

func TestExecInvokerTimeout(t *testing.T) {
	inv := &ExecInvoker{Timeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := inv.Invoke(context.Background(), sh("exec sleep 5"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestCommandString(t *testing.T) {
	cmd := Command{Path: "/opt/tools/run.sh", Args: []string{"pmd", "-d", "/src/my project"}}
	assert.Equal(t, "/opt/tools/run.sh pmd -d '/src/my project'", cmd.String())
}

func TestInvokerFunc(t *testing.T) {
	var got Command
	inv := InvokerFunc(func(_ context.Context, cmd Command) (*Result, error) {
		got = cmd
		return &Result{Stdout: []byte("ok")}, nil
	})
	res, err := inv.Invoke(context.Background(), Command{Name: "fake"})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(res.Stdout))
	assert.Equal(t, "fake", got.Name)
}
