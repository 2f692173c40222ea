// pkg/execute/execute_test.go

package execute

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It is the child process spawned by
// the tests below through os.Args[0].
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	switch args[1] {
	case "echo":
		for _, a := range args[2:] {
			fmt.Println(a)
		}
	case "env":
		fmt.Print(os.Getenv(args[2]))
	case "exit":
		code, _ := strconv.Atoi(args[2])
		os.Exit(code)
	}
	os.Exit(0)
}

func helperOptions(args ...string) Options {
	return Options{
		Command: os.Args[0],
		Args:    append([]string{"-test.run=TestHelperProcess", "--"}, args...),
		Env:     map[string]string{"GO_WANT_HELPER_PROCESS": "1"},
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

func TestRun_CapturesStdout(t *testing.T) {
	t.Parallel()

	opts := helperOptions("echo", "node1", "node2")
	opts.Capture = true

	res, err := New().Run(testContext(t), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"node1", "node2"}, res.Lines())
	assert.Equal(t, 0, res.ExitCode)
}

func TestRun_PassesThroughWhenNotCapturing(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	exec := &Executor{Stdout: &out, Stderr: &bytes.Buffer{}}

	res, err := exec.Run(testContext(t), helperOptions("echo", "hello"))
	require.NoError(t, err)
	assert.Empty(t, res.Stdout)
	assert.Equal(t, "hello\n", out.String())
}

func TestRun_ScopedEnvironment(t *testing.T) {
	t.Parallel()

	opts := helperOptions("env", "TableauAdminUser")
	opts.Env["TableauAdminUser"] = "admin"
	opts.Capture = true
	opts.Redact = true

	res, err := New().Run(testContext(t), opts)
	require.NoError(t, err)
	assert.Equal(t, "admin", res.Stdout)

	_, set := os.LookupEnv("TableauAdminUser")
	assert.False(t, set, "parent environment must not be modified")
}

func TestRun_NonZeroExit(t *testing.T) {
	t.Parallel()

	for _, code := range []int{1, 30, 40} {
		code := code
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			t.Parallel()
			res, err := New().Run(testContext(t), helperOptions("exit", strconv.Itoa(code)))
			require.Error(t, err)

			var failed *hestia_err.CommandFailedError
			require.True(t, cerr.As(err, &failed))
			assert.Equal(t, code, failed.ExitCode)
			assert.Equal(t, os.Args[0], failed.Path)
			assert.Equal(t, code, res.ExitCode)
			assert.Equal(t, hestia_err.ExitCommand, hestia_err.GetExitCode(err))
		})
	}
}

func TestRun_MissingExecutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "spawned")
	tests := []string{
		filepath.Join(dir, "missing.exe"),
		dir,
	}
	for _, path := range tests {
		res, err := New().Run(testContext(t), Options{Command: path, Args: []string{marker}})
		require.Error(t, err)
		assert.Nil(t, res)

		var missing *hestia_err.MissingExecutableError
		require.True(t, cerr.As(err, &missing))
		assert.Equal(t, path, missing.Path)
		assert.Equal(t, hestia_err.ExitOptions, hestia_err.GetExitCode(err))
	}
	assert.NoFileExists(t, marker)
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()

	base := []string{"PATH=/bin", "Home=/root", "KEEP=1"}
	got := MergeEnv(base, map[string]string{"HOME": "/tmp", "NEW": "x"})

	assert.Equal(t, []string{"PATH=/bin", "Home=/tmp", "KEEP=1", "NEW=x"}, got)
	assert.Equal(t, []string{"PATH=/bin", "Home=/root", "KEEP=1"}, base)
}

func TestResultLines(t *testing.T) {
	t.Parallel()

	res := &Result{Stdout: "node1\r\nnode2\r\n"}
	assert.Equal(t, []string{"node1", "node2"}, res.Lines())
	assert.Nil(t, (&Result{}).Lines())
}
