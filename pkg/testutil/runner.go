// Package testutil provides fakes and fixtures shared by hestia tests.
package testutil

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
)

// Call is one recorded FakeRunner invocation.
type Call struct {
	Command string
	Args    []string
	Env     map[string]string
	Capture bool
	Redact  bool
}

// Tool is the executable base name without extension, e.g. "tsm".
func (c Call) Tool() string {
	base := filepath.Base(strings.ReplaceAll(c.Command, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// String renders the call as "tool arg1 arg2".
func (c Call) String() string {
	return strings.TrimSpace(c.Tool() + " " + strings.Join(c.Args, " "))
}

// HasPrefix reports whether the call is tool followed by args.
func (c Call) HasPrefix(tool string, args ...string) bool {
	if c.Tool() != tool || len(c.Args) < len(args) {
		return false
	}
	for i, a := range args {
		if c.Args[i] != a {
			return false
		}
	}
	return true
}

// Handler decides the outcome of a call. Returning nil, nil means success
// with no output.
type Handler func(call Call) (*execute.Result, error)

// FakeRunner records every call and never spawns a process.
type FakeRunner struct {
	mu       sync.Mutex
	calls    []Call
	handlers []Handler
}

// NewFakeRunner returns a runner that succeeds for every call unless a
// handler says otherwise.
func NewFakeRunner(handlers ...Handler) *FakeRunner {
	return &FakeRunner{handlers: handlers}
}

// Handle adds a handler. Handlers are consulted in order; the first one that
// returns a non-nil result or error wins.
func (f *FakeRunner) Handle(h Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, h)
	return f
}

// Run implements execute.Runner.
func (f *FakeRunner) Run(_ context.Context, opts execute.Options) (*execute.Result, error) {
	call := Call{
		Command: opts.Command,
		Args:    append([]string(nil), opts.Args...),
		Env:     copyEnv(opts.Env),
		Capture: opts.Capture,
		Redact:  opts.Redact,
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handlers := append([]Handler(nil), f.handlers...)
	f.mu.Unlock()

	for _, h := range handlers {
		res, err := h(call)
		if res != nil || err != nil {
			if res == nil {
				res = &execute.Result{}
			}
			return res, err
		}
	}
	return &execute.Result{}, nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns each call rendered by Call.String.
func (f *FakeRunner) Commands() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Output answers calls starting with tool and args with stdout.
func Output(stdout string, tool string, args ...string) Handler {
	return func(call Call) (*execute.Result, error) {
		if call.HasPrefix(tool, args...) {
			return &execute.Result{Stdout: stdout}, nil
		}
		return nil, nil
	}
}

// ExitCode fails calls starting with tool and args with a CommandFailedError.
func ExitCode(code int, tool string, args ...string) Handler {
	return func(call Call) (*execute.Result, error) {
		if call.HasPrefix(tool, args...) {
			return &execute.Result{ExitCode: code}, &hestia_err.CommandFailedError{Path: call.Command, ExitCode: code}
		}
		return nil, nil
	}
}

func copyEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
