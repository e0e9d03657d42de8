package app

import "errors"

// Service error kinds. Handlers match them with errors.Is; the wrapped cause
// is only ever logged.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentExists   = errors.New("document already exists")
	ErrEmptyUpload      = errors.New("uploaded file is empty")
	ErrDocumentNotFound = errors.New("document not found")
	ErrExtraction       = errors.New("text extraction failed")
	ErrDependency       = errors.New("dependency failure")
)
