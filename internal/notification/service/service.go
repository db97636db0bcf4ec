package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"casedesk/internal/notification/metrics"
	"casedesk/internal/notification/models"
	"casedesk/internal/platform/idgen"
	dErrors "casedesk/pkg/domain-errors"
	"casedesk/pkg/platform/sentinel"
)

// Store persists notifications one record at a time.
type Store interface {
	Save(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// Service is the notification dispatcher. Nothing in the case engine calls
// it; orchestration code decides when a user is told something.
type Service struct {
	store   Store
	ids     idgen.Generator
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
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

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		ids:    idgen.UUID{},
		now:    time.Now,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores an unread notification for in.UserID.
func (s *Service) Create(ctx context.Context, in models.NewNotification) (*models.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "notification user id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "notification title is required")
	}
	n := &models.Notification{
		ID:        s.ids.NewID(),
		UserID:    in.UserID,
		Title:     in.Title,
		Message:   in.Message,
		CaseID:    in.CaseID,
		Read:      false,
		CreatedAt: s.now(),
	}
	if err := s.store.Save(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save notification")
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "notification created",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"case_id", n.CaseID,
	)
	return n, nil
}

// Get returns one notification.
func (s *Service) Get(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, id, "failed to load notification")
	}
	return n, nil
}

// ListByUser returns the user's notifications newest first; equal
// timestamps are ordered by id descending.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// MarkRead flips one notification to read. Already-read notifications stay read.
func (s *Service) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	n, err := s.store.MarkRead(ctx, id)
	if err != nil {
		return nil, translate(err, id, "failed to mark notification read")
	}
	return n, nil
}

// MarkAllRead flips every unread notification of userID and returns the
// number flipped; a second call returns 0.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	flipped, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	if s.metrics != nil && flipped > 0 {
		s.metrics.AddRead(flipped)
	}
	return flipped, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count notifications")
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return translate(err, id, "failed to delete notification")
	}
	s.logger.InfoContext(ctx, "notification deleted", "notification_id", id)
	return nil
}

func translate(err error, id, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(models.ErrNotificationNotFound, dErrors.CodeNotFound, "notification "+id)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
