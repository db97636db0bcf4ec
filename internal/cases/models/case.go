package models

import (
	"strings"
	"time"
)

// Case is one applicant's request moving through the lifecycle.
//
// Invariants:
//   - History is never empty; History[0].Status is "initiated" and is written
//     together with the case.
//   - Every status change appends exactly one HistoryEntry carrying the new
//     status. Entries are never edited or removed.
//   - Documents keep insertion order.
//   - Version increases by one on every committed write.
type Case struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	TypeName    string         `json:"type_name"`
	Description string         `json:"description,omitempty"`
	Status      Status         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Documents   []Document     `json:"documents"`
	History     []HistoryEntry `json:"history"`
	Assignee    *string        `json:"assignee,omitempty"`
	Version     int64          `json:"version"`
}

// Document is one uploaded artifact attached to a case. Reference is the
// opaque handle returned by the file transport and is never interpreted.
type Document struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Reference    string         `json:"reference"`
	DocumentType string         `json:"document_type"`
	Status       DocumentStatus `json:"status"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	Comment      string         `json:"comment,omitempty"`
}

// HistoryEntry is one immutable audit record. Status holds either a case
// Status value or HistoryMarkerDocumentReviewed.
type HistoryEntry struct {
	ID        string    `json:"id"`
	CaseID    string    `json:"case_id"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	ActorID   string    `json:"actor_id"`
}

// Clone returns a deep copy so stores and callers never share slices.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	out := *c
	out.Documents = append([]Document(nil), c.Documents...)
	out.History = append([]HistoryEntry(nil), c.History...)
	if c.Assignee != nil {
		a := *c.Assignee
		out.Assignee = &a
	}
	return &out
}

// DocumentIndex returns the position of the document with id, or -1.
func (c *Case) DocumentIndex(id string) int {
	for i := range c.Documents {
		if c.Documents[i].ID == id {
			return i
		}
	}
	return -1
}

// DocumentTypes returns the type tag of every uploaded document.
func (c *Case) DocumentTypes() []string {
	out := make([]string, 0, len(c.Documents))
	for _, d := range c.Documents {
		out = append(out, d.DocumentType)
	}
	return out
}

// AppendHistory adds an audit entry. It is the only way entries are written.
func (c *Case) AppendHistory(entry HistoryEntry) {
	entry.CaseID = c.ID
	c.History = append(c.History, entry)
}

// IsFinalized reports whether the case sits in a terminal status.
func (c *Case) IsFinalized() bool {
	return c.Status.IsTerminal()
}

// Matches reports whether the case satisfies f.
func (c *Case) Matches(f Filter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.OwnerID != "" && c.OwnerID != f.OwnerID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		return strings.Contains(strings.ToLower(c.ID), q) ||
			strings.Contains(strings.ToLower(c.TypeName), q) ||
			strings.Contains(strings.ToLower(c.OwnerID), q)
	}
	return true
}

// Filter narrows case listings. Zero value matches everything.
type Filter struct {
	Statuses []Status
	OwnerID  string
	Search   string
}

// Patch carries the fields ApplyUpdate may change. Nil fields are left alone.
type Patch struct {
	Status      *Status
	Description *string
	Assignee    *string
}

// Stats summarizes cases for dashboards.
type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}
