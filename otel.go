package eventflow

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/terraskye/eventflow"

var (
	meter  metric.Meter
	tracer = otel.Tracer(instrumentationName)

	// Command metrics
	CommandsHandled  metric.Int64Counter
	CommandsDuration metric.Float64Histogram

	// Event metrics
	EventsAppended metric.Int64Counter
	EventsLoaded   metric.Int64Counter

	// Snapshot metrics
	SnapshotsWritten metric.Int64Counter

	// Outbox metrics
	OutboxPublished metric.Int64Counter
	OutboxErrors    metric.Int64Counter

	once        sync.Once
	initErr     error
	initialized bool
)

// Init initializes the global metrics. Call once at application startup;
// without it the engine runs uninstrumented.
func Init() error {
	once.Do(func() {
		meter = otel.Meter(instrumentationName)
		initErr = initializeMetrics()
		if initErr == nil {
			initialized = true
		}
	})
	return initErr
}

// MustInit initializes metrics and panics on error. Use in main() for
// fail-fast behavior.
func MustInit() {
	if err := Init(); err != nil {
		panic("failed to initialize metrics: " + err.Error())
	}
}

// IsInitialized returns whether metrics have been initialized.
func IsInitialized() bool {
	return initialized
}

func initializeMetrics() error {
	var err error

	CommandsHandled, err = meter.Int64Counter(
		"eventflow.commands.handled",
		metric.WithDescription("Number of commands executed"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	CommandsDuration, err = meter.Float64Histogram(
		"eventflow.commands.duration",
		metric.WithDescription("Command execution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return err
	}

	EventsAppended, err = meter.Int64Counter(
		"eventflow.events.appended",
		metric.WithDescription("Number of events appended to the event log"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	EventsLoaded, err = meter.Int64Counter(
		"eventflow.events.loaded",
		metric.WithDescription("Number of events replayed during hydration"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	SnapshotsWritten, err = meter.Int64Counter(
		"eventflow.snapshots.written",
		metric.WithDescription("Number of snapshots persisted"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return err
	}

	OutboxPublished, err = meter.Int64Counter(
		"eventflow.outbox.published",
		metric.WithDescription("Number of outbox events published and deleted"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	OutboxErrors, err = meter.Int64Counter(
		"eventflow.outbox.errors",
		metric.WithDescription("Number of outbox publish failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	return nil
}

func recordCommand(ctx context.Context, command string, duration time.Duration, err error) {
	if !initialized {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("command", command),
		attribute.Bool("success", err == nil),
	)
	CommandsHandled.Add(ctx, 1, attrs)
	CommandsDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func recordEventsAppended(ctx context.Context, n int) {
	if !initialized {
		return
	}
	EventsAppended.Add(ctx, int64(n))
}

func recordEventsLoaded(ctx context.Context, n int) {
	if !initialized {
		return
	}
	EventsLoaded.Add(ctx, int64(n))
}

func recordSnapshotWritten(ctx context.Context) {
	if !initialized {
		return
	}
	SnapshotsWritten.Add(ctx, 1)
}

func recordOutboxPublished(ctx context.Context) {
	if !initialized {
		return
	}
	OutboxPublished.Add(ctx, 1)
}

func recordOutboxError(ctx context.Context) {
	if !initialized {
		return
	}
	OutboxErrors.Add(ctx, 1)
}
