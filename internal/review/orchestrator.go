// Package review pairs reviewer decisions with user notifications. It sits
// outside the case engine and calls the engine and the dispatcher explicitly.
package review

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"casedesk/internal/cases/models"
	nmodels "casedesk/internal/notification/models"
)

const (
	statusUpdatedTitle = "Case status updated"
	approvedTitle      = "Case approved"
	approvedMessage    = "Your case has been approved. The license can be downloaded from the case detail."
)

// CaseEngine is the slice of the case service a reviewer decision needs.
type CaseEngine interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ReviewDocuments(ctx context.Context, caseID string, reviews []models.DocumentReview, reviewerID string) (*models.Case, error)
	Transition(ctx context.Context, caseID string, newStatus models.Status, actorID, comment string) (*models.Case, error)
}

// Notifier creates user notifications.
type Notifier interface {
	Create(ctx context.Context, in nmodels.NewNotification) (*nmodels.Notification, error)
}

// Decision is everything a reviewer submits from the review screen.
// An empty NewStatus leaves the case status alone.
type Decision struct {
	CaseID     string
	Reviews    []models.DocumentReview
	NewStatus  models.Status
	Comment    string
	ReviewerID string
}

// Outcome is the resulting case plus the notifications sent to its owner.
type Outcome struct {
	Case          *models.Case            `json:"case"`
	Notifications []*nmodels.Notification `json:"notifications"`
}

type Orchestrator struct {
	engine   CaseEngine
	notifier Notifier
	notify   bool
	logger   *slog.Logger
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithDirectNotify controls whether Decide notifies the owner itself. Turn it
// off when the event Listener is wired, so owners are not told twice.
func WithDirectNotify(enabled bool) Option {
	return func(o *Orchestrator) {
		o.notify = enabled
	}
}

func New(engine CaseEngine, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:   engine,
		notifier: notifier,
		notify:   true,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Decide applies document verdicts atomically, then records the reviewer's
// status or comment through the engine. A comment with no status change is
// written as a history entry on the current status. The owner is notified if
// the status moved or the reviewer left a comment.
func (o *Orchestrator) Decide(ctx context.Context, d Decision) (*Outcome, error) {
	var (
		c   *models.Case
		err error
	)
	if len(d.Reviews) > 0 {
		c, err = o.engine.ReviewDocuments(ctx, d.CaseID, d.Reviews, d.ReviewerID)
	} else {
		c, err = o.engine.GetByID(ctx, d.CaseID)
	}
	if err != nil {
		return nil, err
	}

	transitioned := d.NewStatus != "" && d.NewStatus != c.Status
	if transitioned || d.Comment != "" {
		target := d.NewStatus
		if target == "" {
			target = c.Status
		}
		c, err = o.engine.Transition(ctx, d.CaseID, target, d.ReviewerID, d.Comment)
		if err != nil {
			return nil, err
		}
	}

	out := &Outcome{Case: c, Notifications: []*nmodels.Notification{}}
	if !o.notify || (!transitioned && d.Comment == "") {
		return out, nil
	}

	n, err := o.notifier.Create(ctx, nmodels.NewNotification{
		UserID:  c.OwnerID,
		Title:   statusUpdatedTitle,
		Message: StatusMessage(c.Status, d.Comment),
		CaseID:  c.ID,
	})
	if err != nil {
		return nil, err
	}
	out.Notifications = append(out.Notifications, n)

	if transitioned && c.Status == models.StatusApproved {
		n, err := o.notifier.Create(ctx, nmodels.NewNotification{
			UserID:  c.OwnerID,
			Title:   approvedTitle,
			Message: approvedMessage,
			CaseID:  c.ID,
		})
		if err != nil {
			return nil, err
		}
		out.Notifications = append(out.Notifications, n)
	}

	o.logger.InfoContext(ctx, "review decision applied",
		"case_id", c.ID,
		"status", string(c.Status),
		"transitioned", transitioned,
		"notifications", len(out.Notifications),
	)
	return out, nil
}

// StatusMessage is the owner-facing text for a status update: the reviewer's
// comment when given, otherwise a sentence naming the status.
func StatusMessage(status models.Status, comment string) string {
	if comment != "" {
		return comment
	}
	return "Your case status has been updated to " + strings.ReplaceAll(string(status), "_", " ")
}
