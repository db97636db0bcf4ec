package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"casedesk/internal/cases/models"
)

// ErrCircuitOpen is returned while a Guarded publisher is skipping its target.
var ErrCircuitOpen = errors.New("event publisher circuit open")

// Guarded wraps a remote Publisher in a circuit breaker. After threshold
// consecutive failures it stops calling the target for cooldown, then lets
// one attempt through to test recovery.
type Guarded struct {
	target Publisher
	name   string
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	failures  int
	openUntil time.Time
	isOpen    bool
	halfOpen  bool
}

func NewGuarded(target Publisher, name string, threshold int, cooldown time.Duration, logger *slog.Logger) *Guarded {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Guarded{
		target:    target,
		name:      name,
		logger:    logger,
		now:       time.Now,
		threshold: threshold,
		cooldown:  cooldown,
	}
}

func (g *Guarded) Publish(ctx context.Context, event models.LifecycleEvent) error {
	if !g.allow() {
		return ErrCircuitOpen
	}
	if err := g.target.Publish(ctx, event); err != nil {
		g.recordFailure(ctx)
		return err
	}
	g.recordSuccess(ctx)
	return nil
}

// IsOpen reports whether the target is currently being skipped.
func (g *Guarded) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isOpen && g.now().Before(g.openUntil)
}

func (g *Guarded) allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.isOpen {
		return true
	}
	if g.now().Before(g.openUntil) {
		return false
	}
	// Half-open: one trial call; a failure re-opens immediately.
	g.failures = g.threshold - 1
	g.isOpen = false
	g.halfOpen = true
	return true
}

func (g *Guarded) recordFailure(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures++
	g.halfOpen = false
	if g.failures >= g.threshold && !g.isOpen {
		g.isOpen = true
		g.openUntil = g.now().Add(g.cooldown)
		g.logger.WarnContext(ctx, "event publisher circuit opened",
			"publisher", g.name,
			"failures", g.failures,
			"cooldown", g.cooldown.String(),
		)
	}
}

func (g *Guarded) recordSuccess(ctx context.Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.halfOpen {
		g.logger.InfoContext(ctx, "event publisher recovered", "publisher", g.name)
	}
	g.failures = 0
	g.isOpen = false
	g.halfOpen = false
}
