package models

// Status is a case's position in the lifecycle. Intended progression:
//
//	initiated → documents_uploaded → in_review → documents_required → approved | rejected
//
// No edge list is enforced between non-terminal statuses; approved and
// rejected are terminal (see TerminalPolicy in the service package).
type Status string

const (
	StatusInitiated         Status = "initiated"
	StatusDocumentsUploaded Status = "documents_uploaded"
	StatusInReview          Status = "in_review"
	StatusDocumentsRequired Status = "documents_required"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
)

// AllStatuses lists statuses in progression order.
var AllStatuses = []Status{
	StatusInitiated,
	StatusDocumentsUploaded,
	StatusInReview,
	StatusDocumentsRequired,
	StatusApproved,
	StatusRejected,
}

func (s Status) String() string { return string(s) }

// Valid reports whether s is a known case status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is approved or rejected.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// StatusGroup buckets statuses for dashboards.
type StatusGroup string

const (
	GroupPending   StatusGroup = "pending"
	GroupInReview  StatusGroup = "in_review"
	GroupFinalized StatusGroup = "finalized"
)

// Group classifies s. Unknown statuses fall into pending.
func (s Status) Group() StatusGroup {
	switch {
	case s == StatusInReview:
		return GroupInReview
	case s.IsTerminal():
		return GroupFinalized
	default:
		return GroupPending
	}
}

// HistoryMarkerDocumentReviewed tags history entries written by document
// reviews. It is deliberately not a Status value.
const HistoryMarkerDocumentReviewed = "document_reviewed"

// DocumentStatus is the review state of a single document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// Valid reports whether s is a known document status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentPending, DocumentApproved, DocumentRejected:
		return true
	}
	return false
}
