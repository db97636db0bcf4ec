package events

import (
	"context"
	"log/slog"

	"casedesk/internal/cases/models"
)

// Listener reacts to one lifecycle event.
type Listener interface {
	Handle(ctx context.Context, event models.LifecycleEvent) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event models.LifecycleEvent) error

func (f ListenerFunc) Handle(ctx context.Context, event models.LifecycleEvent) error {
	return f(ctx, event)
}

// Worker drains an event channel and hands each event to every listener.
// A failing listener is logged and does not stop the worker.
type Worker struct {
	inbox     <-chan models.LifecycleEvent
	listeners []Listener
	logger    *slog.Logger
}

func NewWorker(inbox <-chan models.LifecycleEvent, logger *slog.Logger, listeners ...Listener) *Worker {
	return &Worker{inbox: inbox, listeners: listeners, logger: logger}
}

// Run blocks until ctx is cancelled or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.dispatch(ctx, event)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, event models.LifecycleEvent) {
	for _, l := range w.listeners {
		if err := l.Handle(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "lifecycle listener failed",
				"case_id", event.CaseID,
				"kind", event.Kind,
				"error", err,
			)
		}
	}
}
