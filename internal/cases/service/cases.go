package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"casedesk/internal/cases/models"
	dErrors "casedesk/pkg/domain-errors"
	"casedesk/pkg/platform/sentinel"
)

const creationComment = "case initiated"

// Create opens a case for ownerID in status initiated. The returned case is
// already persisted and carries exactly one history entry.
func (s *Service) Create(ctx context.Context, ownerID, typeName, description string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "Create", "")
	defer finish(&err)

	ownerID = strings.TrimSpace(ownerID)
	typeName = strings.TrimSpace(typeName)
	if ownerID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "owner id is required")
	}
	if typeName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "case type name is required")
	}

	now := s.now()
	c = &models.Case{
		ID:          s.ids.NewID(),
		OwnerID:     ownerID,
		TypeName:    typeName,
		Description: description,
		Status:      models.StatusInitiated,
		CreatedAt:   now,
		UpdatedAt:   now,
		Documents:   []models.Document{},
	}
	c.AppendHistory(s.newHistoryEntry(now, string(models.StatusInitiated), creationComment, ownerID))

	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "case id already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}

	s.incrementCaseCreated()
	s.logAudit(ctx, "case_created",
		"case_id", c.ID,
		"owner_id", ownerID,
		"type_name", typeName,
	)
	s.publish(ctx, []models.LifecycleEvent{{
		Kind:       models.EventCaseCreated,
		CaseID:     c.ID,
		OwnerID:    ownerID,
		ActorID:    ownerID,
		To:         models.StatusInitiated,
		Comment:    creationComment,
		OccurredAt: now,
	}})
	return c, nil
}

// GetByID returns the case or a not_found error wrapping models.ErrCaseNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "GetByID", id)
	defer finish(&err)
	return s.load(ctx, id)
}

// ListByOwner returns the owner's cases. Order is unspecified.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) (cases []*models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "ListByOwner", "")
	defer finish(&err)

	cases, err = s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// ListAll returns every case matching filter; the zero Filter matches all.
func (s *Service) ListAll(ctx context.Context, filter models.Filter) (cases []*models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "ListAll", "")
	defer finish(&err)

	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, dErrors.Wrap(models.ErrInvalidStatus, dErrors.CodeValidation, "unknown status filter "+string(st))
		}
	}
	cases, err = s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return cases, nil
}

// ApplyUpdate merges the non-nil fields of patch into the case and refreshes
// UpdatedAt. A history entry is appended whenever patch carries a status,
// even the current one, so the caller's comment is kept; comment defaults to
// "status updated to <status>".
func (s *Service) ApplyUpdate(ctx context.Context, id string, patch models.Patch, actorID, comment string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "ApplyUpdate", id)
	defer finish(&err)

	if patch.Status != nil && !patch.Status.Valid() {
		return nil, invalidStatus(*patch.Status)
	}
	return s.mutate(ctx, id, func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error) {
		return s.applyPatch(ctx, c, patch, actorID, comment, now)
	})
}

func (s *Service) applyPatch(ctx context.Context, c *models.Case, patch models.Patch, actorID, comment string, now time.Time) ([]models.LifecycleEvent, error) {
	var events []models.LifecycleEvent
	if patch.Status != nil {
		ev, err := s.changeStatus(ctx, c, *patch.Status, actorID, comment, now)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Assignee != nil {
		if *patch.Assignee == "" {
			c.Assignee = nil
		} else {
			assignee := *patch.Assignee
			c.Assignee = &assignee
		}
	}
	c.UpdatedAt = now
	return events, nil
}

// changeStatus moves c to next, appends the history entry and returns the
// matching event. Any status write on a finalized case, including a
// same-status one, is governed by the policy. The event carries the caller's
// comment as given so listeners can tell it from the default.
func (s *Service) changeStatus(ctx context.Context, c *models.Case, next models.Status, actorID, comment string, now time.Time) (models.LifecycleEvent, error) {
	from := c.Status
	if from.IsTerminal() {
		if s.policy != PolicyAllow {
			return models.LifecycleEvent{}, caseFinalized(c)
		}
		s.logger.WarnContext(ctx, "reopening finalized case",
			"case_id", c.ID,
			"reopened_from", string(from),
			"status", string(next),
			"actor_id", actorID,
		)
	}
	entryComment := comment
	if entryComment == "" {
		entryComment = "status updated to " + string(next)
	}
	c.Status = next
	c.AppendHistory(s.newHistoryEntry(now, string(next), entryComment, actorID))
	return models.LifecycleEvent{
		Kind:       models.EventStatusChanged,
		CaseID:     c.ID,
		OwnerID:    c.OwnerID,
		ActorID:    actorID,
		From:       from,
		To:         next,
		Comment:    comment,
		OccurredAt: now,
	}, nil
}

// Assign sets or clears the staff member handling the case. Status and
// history are untouched.
func (s *Service) Assign(ctx context.Context, id, assignee, actorID string) (*models.Case, error) {
	assignee = strings.TrimSpace(assignee)
	c, err := s.ApplyUpdate(ctx, id, models.Patch{Assignee: &assignee}, actorID, "")
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "case_assigned",
		"case_id", id,
		"assignee", assignee,
		"actor_id", actorID,
	)
	return c, nil
}

// Stats counts cases per dashboard bucket.
func (s *Service) Stats(ctx context.Context) (stats models.Stats, err error) {
	ctx, finish := s.startSpan(ctx, "Stats", "")
	defer finish(&err)

	cases, err := s.store.List(ctx, models.Filter{})
	if err != nil {
		return models.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	stats.Total = len(cases)
	for _, c := range cases {
		switch {
		case c.Status == models.StatusApproved:
			stats.Approved++
		case c.Status == models.StatusRejected:
			stats.Rejected++
		case c.Status.Group() == models.GroupInReview:
			stats.InReview++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// SortByUpdatedDesc orders cases most recently updated first, breaking ties
// by id so listings are stable.
func SortByUpdatedDesc(cases []*models.Case) {
	sort.SliceStable(cases, func(i, j int) bool {
		if cases[i].UpdatedAt.Equal(cases[j].UpdatedAt) {
			return cases[i].ID > cases[j].ID
		}
		return cases[i].UpdatedAt.After(cases[j].UpdatedAt)
	})
}

func invalidStatus(st models.Status) error {
	return dErrors.Wrap(models.ErrInvalidStatus, dErrors.CodeValidation, "unknown case status "+string(st))
}

func caseFinalized(c *models.Case) error {
	return dErrors.Wrap(models.ErrCaseFinalized, dErrors.CodeInvariantViolation,
		"case "+c.ID+" is "+string(c.Status))
}
