// pkg/hestia_io/context.go

package hestia_io

import (
	"context"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_err"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/telemetry"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RuntimeContext carries everything one CLI invocation needs: the context
// passed to child processes, a logger scoped to the command, the root span
// and a run id that ties log lines, spans and temp file names together.
type RuntimeContext struct {
	Ctx        context.Context
	Log        *zap.Logger
	Span       trace.Span
	RunID      string
	Timestamp  time.Time
	Command    string
	Attributes map[string]string
}

// NewContext sets up tracing and logging for a command.
func NewContext(parent context.Context, cmdName string) *RuntimeContext {
	if parent == nil {
		parent = context.Background()
	}
	runID := uuid.New().String()
	ctx, span := telemetry.Start(parent, cmdName, attribute.String("run_id", runID))

	logger := zap.L().With(
		zap.String("command", cmdName),
		zap.String("run_id", runID[:8]),
	)

	return &RuntimeContext{
		Ctx:        ctx,
		Log:        logger,
		Span:       span,
		RunID:      runID,
		Timestamp:  time.Now(),
		Command:    cmdName,
		Attributes: make(map[string]string),
	}
}

// NewTestContext returns a RuntimeContext around an existing logger with no
// span export. Used by package tests.
func NewTestContext(ctx context.Context, log *zap.Logger) *RuntimeContext {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := telemetry.Start(ctx, "test")
	return &RuntimeContext{
		Ctx:        ctx,
		Log:        log,
		Span:       span,
		RunID:      "test",
		Timestamp:  time.Now(),
		Command:    "test",
		Attributes: make(map[string]string),
	}
}

// HandlePanic recovers panics, logs them, and converts to an error.
func (rc *RuntimeContext) HandlePanic(errPtr *error) {
	if r := recover(); r != nil {
		*errPtr = cerr.AssertionFailedf("panic: %v", r)
		rc.Log.Error("Panic recovered", zap.Any("panic", r))
	}
}

// End logs the outcome, records span attributes, and closes the span.
func (rc *RuntimeContext) End(errPtr *error) {
	defer rc.Span.End()

	var err error
	if errPtr != nil {
		err = *errPtr
	}
	duration := time.Since(rc.Timestamp)
	success := err == nil

	if success {
		rc.Log.Info("Command completed", zap.Duration("duration", duration))
	} else {
		rc.Log.Error("Command failed",
			zap.Duration("duration", duration),
			zap.String("category", hestia_err.CategoryOf(err).String()),
			zap.Int("exit_code", hestia_err.GetExitCode(err)),
			zap.Error(err))
		rc.Span.RecordError(err)
	}

	attrs := []attribute.KeyValue{
		attribute.Bool("success", success),
		attribute.Int64("duration_ms", duration.Milliseconds()),
		attribute.String("os", runtime.GOOS),
		attribute.StringSlice("flags", flagNames(os.Args[1:])),
	}
	for k, v := range rc.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	rc.Span.SetAttributes(attrs...)
}

// flagNames keeps the flag names from a command line and drops every value,
// positional or attached with "=".
func flagNames(args []string) []string {
	var names []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		name, _, _ := strings.Cut(arg, "=")
		names = append(names, name)
	}
	return names
}

// StartStep opens a child span for one workflow step.
func (rc *RuntimeContext) StartStep(name string) (*RuntimeContext, trace.Span) {
	ctx, span := telemetry.Start(rc.Ctx, name)
	child := *rc
	child.Ctx = ctx
	return &child, span
}
