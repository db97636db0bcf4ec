package models

import "errors"

// Domain failures of the case engine. Services wrap them in coded errors, so
// callers may match either with errors.Is or by code.
var (
	ErrCaseNotFound           = errors.New("case not found")
	ErrDocumentNotFound       = errors.New("document not found")
	ErrCaseFinalized          = errors.New("case is finalized")
	ErrInvalidStatus          = errors.New("invalid case status")
	ErrInvalidDocumentStatus  = errors.New("invalid document status")
	ErrConcurrentModification = errors.New("case modified concurrently")
)
