package models

// NewDocument describes an upload. Reference is whatever the file transport
// returned for the stored bytes.
type NewDocument struct {
	Name         string
	Reference    string
	DocumentType string
}

// Review is a reviewer's verdict on one document.
type Review struct {
	Status  DocumentStatus
	Comment string
}

// DocumentReview pairs a verdict with the document it applies to.
type DocumentReview struct {
	DocumentID string
	Review
}

// DefaultComment synthesizes the history comment for a review without one.
func (r Review) DefaultComment() string {
	if r.Comment != "" {
		return r.Comment
	}
	if r.Status == DocumentApproved {
		return "document approved"
	}
	return "document has observations"
}
