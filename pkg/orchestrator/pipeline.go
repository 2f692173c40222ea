// pkg/orchestrator/pipeline.go

package orchestrator

import (
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/hestia/pkg/hestia_io"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/options"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/telemetry"
	"github.com/CodeMonkeyCybersecurity/hestia/pkg/topology"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Step is one unit of a workflow.
type Step struct {
	Name string
	// When gates the step. A nil When always runs.
	When func() bool
	Run  func(rc *hestia_io.RuntimeContext) error
	// Done is printed for the operator after the step succeeds.
	Done string
}

// StepStatus is how a step ended.
type StepStatus string

const (
	StepCompleted StepStatus = "completed"
	StepSkipped   StepStatus = "skipped"
	StepFailed    StepStatus = "failed"
)

// StepResult records one executed or skipped step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Duration time.Duration
	Err      error
}

// Report summarises a workflow run.
type Report struct {
	Mode  options.Mode
	Steps []StepResult
	// Topology is the last reconciliation outcome, when the workflow reconciles.
	Topology *topology.Outcome
}

// Completed returns the names of the steps that ran successfully, in order.
func (r *Report) Completed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Status == StepCompleted {
			names = append(names, s.Name)
		}
	}
	return names
}

func (r *Report) record(rc *hestia_io.RuntimeContext, result StepResult) {
	r.Steps = append(r.Steps, result)
	if err := telemetry.RecordStep(rc.Ctx, r.Mode.String(), result.Name, string(result.Status), result.Duration); err != nil {
		otelzap.Ctx(rc.Ctx).Debug("Step metrics unavailable", zap.Error(err))
	}
}

// runSteps executes steps in order and stops at the first failure. Every
// step gets its own span.
func runSteps(rc *hestia_io.RuntimeContext, report *Report, steps []Step) error {
	logger := otelzap.Ctx(rc.Ctx)
	start := time.Now()
	logger.Info("🚀 Starting workflow",
		zap.String("mode", report.Mode.String()),
		zap.Int("steps", len(steps)))

	for i, step := range steps {
		label := fmt.Sprintf("%s (%d/%d)", step.Name, i+1, len(steps))

		if step.When != nil && !step.When() {
			logger.Info("⏭️  Skipping step", zap.String("step", label))
			report.record(rc, StepResult{Name: step.Name, Status: StepSkipped})
			continue
		}

		stepRC, span := rc.StartStep(step.Name)
		stepStart := time.Now()
		logger.Info("▶️  Step starting", zap.String("step", label))

		err := step.Run(stepRC)
		elapsed := time.Since(stepStart)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			logger.Error("❌ Step failed",
				zap.String("step", label),
				zap.Duration("duration", elapsed),
				zap.Error(err))
			report.record(rc, StepResult{Name: step.Name, Status: StepFailed, Duration: elapsed, Err: err})
			return stepFailure(step.Name, err)
		}
		span.End()

		logger.Info("✅ Step completed",
			zap.String("step", label),
			zap.Duration("duration", elapsed.Round(time.Millisecond)))
		if step.Done != "" {
			logger.Info("terminal prompt: " + step.Done)
		}
		report.record(rc, StepResult{Name: step.Name, Status: StepCompleted, Duration: elapsed})
	}

	logger.Info("🎉 Workflow completed",
		zap.String("mode", report.Mode.String()),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return nil
}
