package models

import (
	"errors"
	"time"
)

// ErrNotificationNotFound is returned for unknown notification ids.
var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one user-facing message, optionally linked to a case.
// Read only ever moves from false to true.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CaseID    string    `json:"case_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification is the input to Create.
type NewNotification struct {
	UserID  string
	Title   string
	Message string
	CaseID  string
}
