// pkg/execute/execute.go

package execute

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RedactedArgs replaces the argument list in logs and spans when Options.Redact is set.
const RedactedArgs = "[REDACTED]"

// Options describes one external process invocation.
type Options struct {
	// Command is the path to the executable. It is never resolved through PATH.
	Command string
	Args    []string
	// Env is added on top of the parent environment for this child only.
	Env map[string]string
	Dir string
	// Capture buffers stdout into Result.Stdout instead of passing it through.
	Capture bool
	// Redact hides the argument list from logs and spans.
	Redact bool
}

// Result of a successful invocation.
type Result struct {
	Stdout   string
	ExitCode int
}

// Lines splits captured stdout into lines without trailing carriage returns.
func (r *Result) Lines() []string {
	if r == nil || r.Stdout == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(r.Stdout, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Runner runs exactly one external process per call.
type Runner interface {
	Run(ctx context.Context, opts Options) (*Result, error)
}

// Executor is the os/exec backed Runner.
type Executor struct {
	Stdout io.Writer
	Stderr io.Writer
}

// New returns an Executor wired to the process stdout and stderr.
func New() *Executor {
	return &Executor{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run spawns the process, waits for it, and classifies the outcome. A missing
// executable fails before anything is spawned; a non-zero exit is returned as
// a CommandFailedError carrying the exit code.
func (e *Executor) Run(ctx context.Context, opts Options) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := otelzap.Ctx(ctx)

	if err := checkExecutable(opts.Command); err != nil {
		logger.Error("❌ Executable not found", zap.String("command", opts.Command))
		return nil, err
	}

	ctx, span := telemetry.Start(ctx, "execute.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("command", opts.Command),
		attribute.String("args", displayArgs(opts)),
		attribute.Bool("capture", opts.Capture),
	)

	logger.Info("Running command",
		zap.String("command", opts.Command),
		zap.String("args", displayArgs(opts)),
		zap.Strings("env_keys", envKeys(opts.Env)),
		zap.Bool("capture", opts.Capture))

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = MergeEnv(os.Environ(), opts.Env)
	cmd.Stdin = nil

	var stdout bytes.Buffer
	if opts.Capture {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = writerOr(e.Stdout, os.Stdout)
	}
	cmd.Stderr = writerOr(e.Stderr, os.Stderr)

	err := cmd.Run()
	result := &Result{Stdout: stdout.String()}
	if err == nil {
		logger.Debug("Command succeeded", zap.String("command", opts.Command))
		return result, nil
	}

	span.RecordError(err)
	var exitErr *exec.ExitError
	if cerr.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		logger.Error("Command exited with non-zero code",
			zap.String("command", opts.Command),
			zap.Int("exit_code", result.ExitCode))
		return result, &hestia_err.CommandFailedError{Path: opts.Command, ExitCode: result.ExitCode}
	}

	logger.Error("Command could not be started", zap.String("command", opts.Command), zap.Error(err))
	return nil, cerr.Wrapf(err, "failed to run %s", opts.Command)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &hestia_err.MissingExecutableError{Path: path}
	}
	return nil
}

// MergeEnv returns base with overrides applied. Keys already present in base
// are replaced in place; base itself is not modified.
func MergeEnv(base []string, overrides map[string]string) []string {
	env := make([]string, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if val, ok := lookupFold(overrides, key); ok {
			if !seen[strings.ToUpper(key)] {
				env = append(env, key+"="+val)
				seen[strings.ToUpper(key)] = true
			}
			continue
		}
		env = append(env, kv)
	}
	for _, key := range sortedKeys(overrides) {
		if !seen[strings.ToUpper(key)] {
			env = append(env, key+"="+overrides[key])
		}
	}
	return env
}

// Environment variable names are case-insensitive on Windows, so overrides
// match existing keys regardless of case.
func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	return sortedKeys(m)
}

func displayArgs(opts Options) string {
	if opts.Redact {
		return RedactedArgs
	}
	return strings.Join(opts.Args, " ")
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
