// Package logging provides logrus middleware for the engine's ports.
package logging

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/terraskye/eventflow"
)

type executorLogger[A any, C eventflow.Command] struct {
	logger *logrus.Entry
	next   eventflow.Executor[A, C]
}

func (l *executorLogger[A, C]) Execute(ctx context.Context, aggregateID string, command C) (A, error) {
	l.logger.Infof("Execute: %s (aggregateID: %s)", command.CommandName(), aggregateID)

	result, err := l.next.Execute(ctx, aggregateID, command)
	if err != nil {
		l.logger.Errorf("Execute failed: %s (aggregateID: %s): %v", command.CommandName(), aggregateID, err)
	}

	return result, err
}

// WithExecutorLogging wraps an Executor with logging functionality. It logs
// the command name and aggregate ID before execution, and logs errors if
// the command fails.
func WithExecutorLogging[A any, C eventflow.Command](logger *logrus.Entry, next eventflow.Executor[A, C]) eventflow.Executor[A, C] {
	return &executorLogger[A, C]{logger: logger, next: next}
}
