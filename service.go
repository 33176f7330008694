package eventflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor is the inbound port transport adapters call to run one command
// against one aggregate instance. aggregateID is "" for commands that create
// the instance; hydration is skipped in that case.
type Executor[A any, C Command] interface {
	Execute(ctx context.Context, aggregateID string, command C) (A, error)
}

// CommandServiceOption customizes a CommandService.
type CommandServiceOption func(*serviceOptions)

type serviceOptions struct {
	metadataFns []func(ctx context.Context) map[string]string
	clock       func() time.Time
	logger      *logrus.Entry
}

// WithMetadata adds a metadata extractor. Each extractor is called once per
// executed command and its key-value pairs are stamped onto every persisted
// envelope. Multiple extractors are applied in registration order.
func WithMetadata(fn func(ctx context.Context) map[string]string) CommandServiceOption {
	return func(o *serviceOptions) { o.metadataFns = append(o.metadataFns, fn) }
}

// WithClock overrides the clock used for envelope and snapshot timestamps.
func WithClock(clock func() time.Time) CommandServiceOption {
	return func(o *serviceOptions) { o.clock = clock }
}

// WithLogger sets the logger used for non-fatal persistence failures.
func WithLogger(logger *logrus.Entry) CommandServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// CommandService orchestrates one command end to end: hydrate the aggregate
// from storage, decide new events, fold them in, persist them alongside
// their outbox copies, and persist a snapshot when the aggregate's policy
// says one is due.
//
// Every invocation works on its own freshly hydrated aggregate copy; the
// service holds no aggregate cache and takes no locks. Two concurrent
// commands against the same aggregate id can race (see StoreEvents).
type CommandService[A Aggregate[A, S, C, E], S any, C Command, E Event] struct {
	repository   Repository[A, E]
	newAggregate func() A
	services     S
	opts         serviceOptions
}

// NewCommandService builds a service for one aggregate kind. newAggregate
// must return the aggregate's fixed empty default; services is the
// capability set handed to every Handle call.
func NewCommandService[A Aggregate[A, S, C, E], S any, C Command, E Event](
	repository Repository[A, E],
	newAggregate func() A,
	services S,
	opts ...CommandServiceOption,
) *CommandService[A, S, C, E] {
	options := serviceOptions{
		clock:  now,
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(&options)
	}
	return &CommandService[A, S, C, E]{
		repository:   repository,
		newAggregate: newAggregate,
		services:     services,
		opts:         options,
	}
}

// Execute runs one command. Decision errors from Handle propagate verbatim;
// storage failures during persistence collapse to ErrUnknown. A nil-identity
// aggregate after apply also yields ErrUnknown: it means the decision step
// failed to establish identity, which is a programming-contract violation
// rather than a user error. No partial aggregate state is ever returned on
// error.
func (s *CommandService[A, S, C, E]) Execute(ctx context.Context, aggregateID string, command C) (result A, err error) {
	var zero A

	start := s.opts.clock()
	ctx, span := tracer.Start(ctx, "eventflow.Execute", trace.WithAttributes(
		attribute.String("command", command.CommandName()),
		attribute.String("aggregate_id", aggregateID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.End()
		recordCommand(ctx, command.CommandName(), time.Since(start), err)
	}()

	aggregate := s.newAggregate()

	if aggregateID != "" {
		snapshot, err := s.repository.RetrieveLatestSnapshot(ctx, aggregateID)
		if err != nil {
			return zero, fmt.Errorf("execute %s for aggregate %q: load snapshot: %w", command.CommandName(), aggregateID, err)
		}
		after := ""
		if snapshot != nil {
			aggregate = snapshot.State
			after = snapshot.LastSequence
		}
		history, err := s.repository.RetrieveEvents(ctx, aggregateID, after)
		if err != nil {
			return zero, fmt.Errorf("execute %s for aggregate %q: load events: %w", command.CommandName(), aggregateID, err)
		}
		for _, envelope := range history {
			aggregate.Apply(envelope.Event)
		}
		recordEventsLoaded(ctx, len(history))
	}

	events, err := aggregate.Handle(ctx, command, s.services)
	if err != nil {
		return zero, err
	}

	for _, event := range events {
		aggregate.Apply(event)
	}
	if aggregate.AggregateID() == "" {
		return zero, ErrUnknown
	}

	if len(events) > 0 {
		metadata := make(map[string]string)
		for _, fn := range s.opts.metadataFns {
			for k, v := range fn(ctx) {
				metadata[k] = v
			}
		}

		envelopes := make([]Envelope[E], len(events))
		for i, event := range events {
			envelopes[i] = Envelope[E]{
				AggregateID:   aggregate.AggregateID(),
				AggregateType: aggregate.AggregateType(),
				Sequence:      event.EventID(),
				Event:         event,
				Metadata:      metadata,
				Timestamp:     s.opts.clock(),
			}
		}
		if err := s.repository.StoreEvents(ctx, envelopes); err != nil {
			s.opts.logger.WithError(err).WithFields(logrus.Fields{
				"command":      command.CommandName(),
				"aggregate_id": aggregate.AggregateID(),
			}).Error("failed to persist events")
			return zero, ErrUnknown
		}
		recordEventsAppended(ctx, len(envelopes))
	}

	if snapshot, ok := aggregate.Snapshot(); ok {
		if err := s.repository.StoreSnapshot(ctx, *snapshot); err != nil {
			s.opts.logger.WithError(err).WithField("aggregate_id", aggregate.AggregateID()).
				Warn("failed to persist snapshot")
		} else {
			recordSnapshotWritten(ctx)
		}
	}

	return aggregate, nil
}
