package telemetry

import (
	"context"
	"sync"
	"time"

	cerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type stepInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

var (
	instrumentsOnce sync.Once
	instruments     *stepInstruments
	instrumentsErr  error
)

func stepMeters() (*stepInstruments, error) {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("hestia")

		total, err := meter.Int64Counter("hestia_workflow_steps_total",
			metric.WithDescription("Workflow steps by mode, step and status"))
		if err != nil {
			instrumentsErr = cerr.Wrap(err, "failed to create step counter")
			return
		}
		duration, err := meter.Float64Histogram("hestia_workflow_step_duration_seconds",
			metric.WithDescription("Time spent in each workflow step"),
			metric.WithUnit("s"))
		if err != nil {
			instrumentsErr = cerr.Wrap(err, "failed to create step duration histogram")
			return
		}
		instruments = &stepInstruments{total: total, duration: duration}
	})
	return instruments, instrumentsErr
}

// RecordStep counts one finished or skipped workflow step. Measurements go to
// the global meter provider, which is a no-op unless one is installed.
func RecordStep(ctx context.Context, mode, step, status string, elapsed time.Duration) error {
	m, err := stepMeters()
	if err != nil {
		return err
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("step", step),
		attribute.String("status", status),
	)
	m.total.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	return nil
}
