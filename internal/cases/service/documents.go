package service

import (
	"context"
	"strings"
	"time"

	"casedesk/internal/cases/models"
	dErrors "casedesk/pkg/domain-errors"
)

const uploadTransitionComment = "documents uploaded by applicant"

// UploadDocument attaches a pending document to the case. The first upload
// on an initiated case also moves it to documents_uploaded, attributed to
// the case owner; no other upload touches the status.
func (s *Service) UploadDocument(ctx context.Context, caseID string, doc models.NewDocument, actorID string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "UploadDocument", caseID)
	defer finish(&err)

	doc.Name = strings.TrimSpace(doc.Name)
	if doc.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document name is required")
	}

	c, err = s.mutate(ctx, caseID, func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error) {
		d := models.Document{
			ID:           s.ids.NewID(),
			Name:         doc.Name,
			Reference:    doc.Reference,
			DocumentType: doc.DocumentType,
			Status:       models.DocumentPending,
			UploadedAt:   now,
		}
		c.Documents = append(c.Documents, d)
		c.UpdatedAt = now

		events := []models.LifecycleEvent{{
			Kind:       models.EventDocumentUploaded,
			CaseID:     c.ID,
			OwnerID:    c.OwnerID,
			ActorID:    actorID,
			DocumentID: d.ID,
			OccurredAt: now,
		}}
		if c.Status == models.StatusInitiated {
			c.Status = models.StatusDocumentsUploaded
			c.AppendHistory(s.newHistoryEntry(now, string(models.StatusDocumentsUploaded), uploadTransitionComment, c.OwnerID))
			events = append(events, models.LifecycleEvent{
				Kind:       models.EventStatusChanged,
				CaseID:     c.ID,
				OwnerID:    c.OwnerID,
				ActorID:    c.OwnerID,
				From:       models.StatusInitiated,
				To:         models.StatusDocumentsUploaded,
				Comment:    uploadTransitionComment,
				OccurredAt: now,
			})
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "document_uploaded",
		"case_id", caseID,
		"document_type", doc.DocumentType,
		"actor_id", actorID,
	)
	return c, nil
}

// ReviewDocument records a verdict on one document and appends a
// document_reviewed history entry. The case status never changes here.
func (s *Service) ReviewDocument(ctx context.Context, caseID, documentID string, review models.Review, reviewerID string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "ReviewDocument", caseID)
	defer finish(&err)

	if !review.Status.Valid() {
		return nil, invalidDocumentStatus(review.Status)
	}
	c, err = s.mutate(ctx, caseID, func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error) {
		idx := c.DocumentIndex(documentID)
		if idx < 0 {
			return nil, documentNotFound(documentID)
		}
		ev := s.applyReview(c, idx, review, reviewerID, now)
		c.UpdatedAt = now
		return []models.LifecycleEvent{ev}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "document_reviewed",
		"case_id", caseID,
		"document_id", documentID,
		"outcome", string(review.Status),
		"actor_id", reviewerID,
	)
	return c, nil
}

// ReviewDocuments applies several verdicts in one write. If any document id
// is unknown nothing is committed. Verdicts that leave a document's status
// and comment unchanged are skipped; when all are skipped the case is
// returned as stored.
func (s *Service) ReviewDocuments(ctx context.Context, caseID string, reviews []models.DocumentReview, reviewerID string) (c *models.Case, err error) {
	ctx, finish := s.startSpan(ctx, "ReviewDocuments", caseID)
	defer finish(&err)

	for _, r := range reviews {
		if !r.Status.Valid() {
			return nil, invalidDocumentStatus(r.Status)
		}
	}
	reviewed := 0
	c, err = s.mutate(ctx, caseID, func(c *models.Case, now time.Time) ([]models.LifecycleEvent, error) {
		reviewed = 0
		indexes := make([]int, len(reviews))
		for i, r := range reviews {
			idx := c.DocumentIndex(r.DocumentID)
			if idx < 0 {
				return nil, documentNotFound(r.DocumentID)
			}
			indexes[i] = idx
		}

		var events []models.LifecycleEvent
		for i, r := range reviews {
			d := c.Documents[indexes[i]]
			if d.Status == r.Status && d.Comment == r.Comment {
				continue
			}
			events = append(events, s.applyReview(c, indexes[i], r.Review, reviewerID, now))
			reviewed++
		}
		if len(events) == 0 {
			return nil, errUnchanged
		}
		c.UpdatedAt = now
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	if reviewed > 0 {
		s.logAudit(ctx, "documents_reviewed",
			"case_id", caseID,
			"count", reviewed,
			"actor_id", reviewerID,
		)
	}
	return c, nil
}

func (s *Service) applyReview(c *models.Case, idx int, review models.Review, reviewerID string, now time.Time) models.LifecycleEvent {
	d := &c.Documents[idx]
	d.Status = review.Status
	d.Comment = review.Comment
	comment := review.DefaultComment()
	c.AppendHistory(s.newHistoryEntry(now, models.HistoryMarkerDocumentReviewed, comment, reviewerID))
	return models.LifecycleEvent{
		Kind:       models.EventDocumentReviewed,
		CaseID:     c.ID,
		OwnerID:    c.OwnerID,
		ActorID:    reviewerID,
		DocumentID: d.ID,
		Review:     string(review.Status),
		Comment:    comment,
		OccurredAt: now,
	}
}

func documentNotFound(id string) error {
	return dErrors.Wrap(models.ErrDocumentNotFound, dErrors.CodeNotFound, "document "+id)
}

func invalidDocumentStatus(st models.DocumentStatus) error {
	return dErrors.Wrap(models.ErrInvalidDocumentStatus, dErrors.CodeValidation, "unknown document status "+string(st))
}
