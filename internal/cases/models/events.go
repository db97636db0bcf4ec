package models

import "time"

// EventKind names a lifecycle event.
type EventKind string

const (
	EventCaseCreated      EventKind = "case_created"
	EventStatusChanged    EventKind = "status_changed"
	EventDocumentUploaded EventKind = "document_uploaded"
	EventDocumentReviewed EventKind = "document_reviewed"
)

// LifecycleEvent is emitted after a committed change. Listeners decide what
// to do with it; the engine itself never notifies anyone.
type LifecycleEvent struct {
	Kind       EventKind `json:"kind"`
	CaseID     string    `json:"case_id"`
	OwnerID    string    `json:"owner_id"`
	ActorID    string    `json:"actor_id"`
	From       Status    `json:"from,omitempty"`
	To         Status    `json:"to,omitempty"`
	DocumentID string    `json:"document_id,omitempty"`
	Review     string    `json:"review,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
