package eventflow

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// DefaultRelayInterval is how often the relay drains the outbox unless
// overridden.
const DefaultRelayInterval = 10 * time.Second

// OutboxRelayOption customizes an OutboxRelay.
type OutboxRelayOption func(*relayOptions)

type relayOptions struct {
	interval       time.Duration
	publishRetries uint64
	retryDelay     time.Duration
	logger         *logrus.Entry
}

// WithRelayInterval sets the tick interval between outbox drains.
func WithRelayInterval(interval time.Duration) OutboxRelayOption {
	return func(o *relayOptions) { o.interval = interval }
}

// WithPublishRetries sets how many extra publish attempts are made per row
// within a single drain before giving up until the next tick. Extra attempts
// are safe under the at-least-once contract.
func WithPublishRetries(retries uint64) OutboxRelayOption {
	return func(o *relayOptions) { o.publishRetries = retries }
}

// WithRelayLogger sets the relay's logger.
func WithRelayLogger(logger *logrus.Entry) OutboxRelayOption {
	return func(o *relayOptions) { o.logger = logger }
}

// OutboxRelay is the recurring background process that drains pending outbox
// rows to the event bus. A row is deleted only after the bus acknowledged
// the publish, so downstream delivery is at-least-once.
//
// The relay never aborts its loop on individual failures and has no
// termination condition other than context cancellation: it runs for the
// process lifetime.
type OutboxRelay[E Event] struct {
	store OutboxStore[E]
	bus   EventBus[E]
	opts  relayOptions
}

// NewOutboxRelay builds a relay over the shared storage handle and bus.
func NewOutboxRelay[E Event](store OutboxStore[E], bus EventBus[E], opts ...OutboxRelayOption) *OutboxRelay[E] {
	options := relayOptions{
		interval:   DefaultRelayInterval,
		retryDelay: 100 * time.Millisecond,
		logger:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(&options)
	}
	return &OutboxRelay[E]{store: store, bus: bus, opts: options}
}

// Run drains the outbox on a fixed interval until ctx is done. In-flight
// drains are not forcibly cancelled mid-row; they are expected to be short
// relative to the shutdown grace period.
func (r *OutboxRelay[E]) Run(ctx context.Context) {
	ticker := time.NewTicker(r.opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain performs one relay tick: read all pending outbox rows and attempt to
// publish-and-delete each. Failures are logged and the loop continues; an
// empty outbox is a normal, logged condition.
func (r *OutboxRelay[E]) Drain(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "eventflow.Drain")
	defer span.End()

	events, err := r.store.RetrieveOutboxEvents(ctx)
	if err != nil {
		r.opts.logger.WithError(err).Error("failed to read outbox")
		return
	}
	if len(events) == 0 {
		r.opts.logger.Debug("no events in outbox queue")
		return
	}

	for _, event := range events {
		operation := func() error {
			return r.store.SendAndDeleteOutboxEvent(ctx, event, r.bus)
		}
		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(r.opts.retryDelay), r.opts.publishRetries),
			ctx,
		)
		if err := backoff.Retry(operation, policy); err != nil {
			recordOutboxError(ctx)
			r.opts.logger.WithError(err).WithFields(logrus.Fields{
				"aggregate_id": event.AggregateID,
				"sequence":     event.Sequence,
			}).Error("failed to relay outbox event")
			continue
		}
		recordOutboxPublished(ctx)
	}
}
