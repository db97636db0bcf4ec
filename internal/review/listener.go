package review

import (
	"context"

	"casedesk/internal/cases/models"
	nmodels "casedesk/internal/notification/models"
)

// Listener turns status_changed events into owner notifications. Changes the
// owner made themselves, like the upload transition, are not announced. The
// reviewer's comment, when present, becomes the message as it does in Decide.
type Listener struct {
	notifier Notifier
}

func NewListener(notifier Notifier) *Listener {
	return &Listener{notifier: notifier}
}

func (l *Listener) Handle(ctx context.Context, ev models.LifecycleEvent) error {
	if ev.Kind != models.EventStatusChanged || ev.ActorID == ev.OwnerID {
		return nil
	}
	if _, err := l.notifier.Create(ctx, nmodels.NewNotification{
		UserID:  ev.OwnerID,
		Title:   statusUpdatedTitle,
		Message: StatusMessage(ev.To, ev.Comment),
		CaseID:  ev.CaseID,
	}); err != nil {
		return err
	}
	if ev.To != models.StatusApproved || ev.From == ev.To {
		return nil
	}
	_, err := l.notifier.Create(ctx, nmodels.NewNotification{
		UserID:  ev.OwnerID,
		Title:   approvedTitle,
		Message: approvedMessage,
		CaseID:  ev.CaseID,
	})
	return err
}
