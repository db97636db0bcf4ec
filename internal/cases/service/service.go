package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"casedesk/internal/cases/metrics"
	"casedesk/internal/cases/models"
	"casedesk/internal/platform/idgen"
	dErrors "casedesk/pkg/domain-errors"
	"casedesk/pkg/platform/sentinel"
	"casedesk/pkg/requestcontext"
)

// Store is the per-record case repository. Update must be a compare-and-swap
// on Version, returning sentinel.ErrConflict when the stored version moved.
type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, id string) (*models.Case, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Case, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Case, error)
	Update(ctx context.Context, c *models.Case) error
}

// EventPublisher receives lifecycle events after the change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

const defaultMaxAttempts = 3

// errUnchanged tells mutate the case needs no write.
var errUnchanged = errors.New("case unchanged")

// Service is the case engine: store operations, document review and the
// lifecycle manager over one injected repository.
type Service struct {
	store       Store
	ids         idgen.Generator
	now         func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
	publisher   EventPublisher
	policy      TerminalPolicy
	tracer      trace.Tracer
	locks       *caseLocks
	maxAttempts int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) {
		s.ids = g
	}
}

func WithTerminalPolicy(p TerminalPolicy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMaxAttempts bounds how many times a mutation is re-applied after a
// version conflict.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// New constructs the case engine over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		ids:         idgen.UUID{},
		now:         time.Now,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		policy:      PolicyEnforce,
		tracer:      otel.Tracer("casedesk/internal/cases"),
		locks:       &caseLocks{},
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutation edits c in place and returns the events to publish once the write
// commits. It may run more than once when the write loses a version race.
type mutation func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error)

// mutate runs a read-modify-write cycle on one case under its shard lock and
// retries on version conflicts. Events are published only after commit.
func (s *Service) mutate(ctx context.Context, caseID string, fn mutation) (*models.Case, error) {
	var (
		saved  *models.Case
		events []models.LifecycleEvent
	)
	err := s.locks.withLock(ctx, caseID, func(ctx context.Context) error {
		for attempt := 1; ; attempt++ {
			c, err := s.load(ctx, caseID)
			if err != nil {
				return err
			}
			events, err = fn(c, s.now())
			if errors.Is(err, errUnchanged) {
				saved, events = c, nil
				return nil
			}
			if err != nil {
				return err
			}
			err = s.store.Update(ctx, c)
			switch {
			case err == nil:
				saved = c
				return nil
			case errors.Is(err, sentinel.ErrNotFound):
				return caseNotFound(caseID)
			case !errors.Is(err, sentinel.ErrConflict):
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save case")
			}
			s.incrementVersionConflict()
			if attempt >= s.maxAttempts {
				s.logger.WarnContext(ctx, "case write abandoned after version conflicts",
					"case_id", caseID,
					"attempts", attempt,
				)
				return dErrors.Wrap(models.ErrConcurrentModification, dErrors.CodeConflict,
					"case was modified concurrently, retry the request")
			}
			s.logger.DebugContext(ctx, "case version conflict, retrying",
				"case_id", caseID,
				"attempt", attempt,
			)
		}
	})
	if err != nil {
		return nil, err
	}
	s.countEvents(events)
	s.publish(ctx, events)
	return saved, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, caseNotFound(id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}

func (s *Service) publish(ctx context.Context, events []models.LifecycleEvent) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.incrementPublishError()
			s.logger.ErrorContext(ctx, "failed to publish lifecycle event",
				"case_id", ev.CaseID,
				"kind", ev.Kind,
				"error", err,
			)
		}
	}
}

func (s *Service) countEvents(events []models.LifecycleEvent) {
	for _, ev := range events {
		switch ev.Kind {
		case models.EventStatusChanged:
			s.incrementTransition(ev.To)
		case models.EventDocumentUploaded:
			s.incrementDocumentUploaded()
		case models.EventDocumentReviewed:
			s.incrementReview(models.DocumentStatus(ev.Review))
		}
	}
}

func (s *Service) newHistoryEntry(now time.Time, status, comment, actorID string) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        s.ids.NewID(),
		Timestamp: now,
		Status:    status,
		Comment:   comment,
		ActorID:   actorID,
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// startSpan opens a span for operation and returns a finisher that records
// the outcome. Use as: defer finish(&err).
func (s *Service) startSpan(ctx context.Context, operation, caseID string) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "cases."+operation)
	if caseID != "" {
		span.SetAttributes(attribute.String("case.id", caseID))
	}
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(*errp)))
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveOperation(operation, start)
		}
	}
}

func caseNotFound(id string) error {
	return dErrors.Wrap(models.ErrCaseNotFound, dErrors.CodeNotFound, "case "+id)
}

func (s *Service) incrementCaseCreated() {
	if s.metrics != nil {
		s.metrics.IncrementCaseCreated()
	}
}

func (s *Service) incrementTransition(to models.Status) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(to))
	}
}

func (s *Service) incrementDocumentUploaded() {
	if s.metrics != nil {
		s.metrics.IncrementDocumentUploaded()
	}
}

func (s *Service) incrementReview(outcome models.DocumentStatus) {
	if s.metrics != nil {
		s.metrics.IncrementReview(string(outcome))
	}
}

func (s *Service) incrementVersionConflict() {
	if s.metrics != nil {
		s.metrics.IncrementVersionConflict()
	}
}

func (s *Service) incrementPublishError() {
	if s.metrics != nil {
		s.metrics.IncrementPublishError()
	}
}
