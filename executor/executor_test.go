package executor_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arbin-com/github-upload/executor"
)

func TestBasicExecution(t *testing.T) {
	cmd := executor.New("echo", "hello", "world")
	result, err := cmd.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "hello world\n", result.Stdout)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "echo hello world", cmd.String())
}

func TestWrappedExecutor(t *testing.T) {
	git := executor.NewWrappedExecutor("git")

	result, err := git.Execute(context.Background(), []string{"version"})
	if err != nil {
		t.Skipf("git not available: %v", err)
	}
	assert.Contains(t, result.Stdout, "git version")
}

func TestFailureCarriesStderr(t *testing.T) {
	cmd := executor.New("sh", "-c", "echo first >&2; echo 'fatal: bad thing' >&2; exit 3")
	result, err := cmd.Execute(context.Background())
	require.Error(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, err.Error(), "fatal: bad thing")
	assert.NotContains(t, err.Error(), "first")
}

func TestRetryMechanism(t *testing.T) {
	marker := t.TempDir() + "/attempts"

	// fails until the third attempt
	script := `echo x >> "$MARKER"; [ "$(wc -l < "$MARKER")" -ge 3 ]`
	cmd := executor.New("sh", "-c", script)

	result, err := cmd.Execute(context.Background(),
		executor.WithEnv(map[string]string{"MARKER": marker}),
		executor.WithRetry(3, 10*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestRetryCondition(t *testing.T) {
	calls := 0
	cmd := executor.New("false")

	_, err := cmd.Execute(context.Background(),
		executor.WithRetry(5, time.Millisecond),
		executor.WithRetryCondition(func(error) bool {
			calls++
			return false
		}),
	)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFailureSkipsTrailingHints(t *testing.T) {
	script := `echo "fatal: Unable to create '/r/.git/index.lock': File exists." >&2; ` +
		`echo "hint: remove the file manually to continue." >&2; exit 128`
	result, err := executor.New("sh", "-c", script).Execute(context.Background())
	require.Error(t, err)

	assert.Equal(t, 128, result.ExitCode)
	assert.Contains(t, err.Error(), "index.lock': File exists")
	assert.NotContains(t, err.Error(), "hint:")
}

func TestWrappedExecutor_RetriesWithDefaults(t *testing.T) {
	marker := t.TempDir() + "/attempts"
	sh := executor.NewWrappedExecutor("sh", executor.WithEnv(map[string]string{"MARKER": marker}))

	script := `echo x >> "$MARKER"; [ "$(wc -l < "$MARKER")" -ge 2 ] || { echo "fatal: busy" >&2; exit 1; }`
	_, err := sh.Execute(context.Background(), []string{"-c", script},
		executor.WithRetry(2, time.Millisecond),
		executor.WithRetryCondition(func(err error) bool { return strings.Contains(err.Error(), "busy") }),
	)
	require.NoError(t, err)

	data, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	result, err := executor.New("pwd").Execute(context.Background(), executor.WithWorkingDir(dir))
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, dir)
}

func TestEnvironmentVariables(t *testing.T) {
	cmd := executor.New("sh", "-c", "echo $A-$B")
	result, err := cmd.Execute(context.Background(), executor.WithEnv(map[string]string{"A": "one", "B": "two"}))
	require.NoError(t, err)
	assert.Equal(t, "one-two\n", result.Stdout)
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := executor.New("sleep", "5").Execute(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestLines(t *testing.T) {
	cmd := executor.New("printf", `a\nb\r\nc`)

	var got []string
	for line, err := range cmd.Lines(context.Background()) {
		require.NoError(t, err)
		got = append(got, line)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestLines_EarlyStop(t *testing.T) {
	cmd := executor.New("yes", "line")

	count := 0
	for line, err := range cmd.Lines(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "line", line)
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestLines_ExitError(t *testing.T) {
	cmd := executor.New("sh", "-c", "echo out; echo 'fatal: not a git repository' >&2; exit 128")

	var lines []string
	var last error
	for line, err := range cmd.Lines(context.Background()) {
		if err != nil {
			last = err
			continue
		}
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"out"}, lines)
	require.Error(t, last)
	assert.Contains(t, last.Error(), "not a git repository")
}

func TestLines_StartError(t *testing.T) {
	cmd := executor.New("definitely-not-a-real-binary-name")

	var got error
	for _, err := range cmd.Lines(context.Background()) {
		got = err
	}
	require.Error(t, got)
	assert.False(t, errors.Is(got, context.Canceled))
}
