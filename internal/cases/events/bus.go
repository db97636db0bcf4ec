// Package events carries lifecycle events from the case engine to whoever
// reacts to them. The engine only sees a Publisher; listeners run in a
// background Worker.
package events

import (
	"context"
	"errors"
	"fmt"

	"casedesk/internal/cases/models"
)

// ErrBusFull is returned when the in-process bus cannot accept an event
// without blocking the caller.
var ErrBusFull = errors.New("event bus full")

// Publisher accepts lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

// Bus is a buffered in-process channel between the engine and a Worker.
type Bus struct {
	ch chan models.LifecycleEvent
}

func NewBus(size int) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{ch: make(chan models.LifecycleEvent, size)}
}

// Publish enqueues event without waiting for room.
func (b *Bus) Publish(ctx context.Context, event models.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.ch <- event:
		return nil
	default:
		return ErrBusFull
	}
}

// Events is the consumer side of the bus.
func (b *Bus) Events() <-chan models.LifecycleEvent {
	return b.ch
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.LifecycleEvent) error { return nil }

// Fanout publishes to every publisher and reports all failures together.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event models.LifecycleEvent) error {
	var errs []error
	for i, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("publisher %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
