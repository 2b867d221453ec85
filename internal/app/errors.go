package app

import "errors"

// Service error taxonomy. Handlers branch on these sentinels; wrapped
// detail stays internal.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrFileTooLarge       = errors.New("file too large")
	ErrExtractionFailed   = errors.New("text extraction failed")
	ErrEmptyDocument      = errors.New("document has no extractable text")
	ErrIndexFailure       = errors.New("vector index failure")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("resource belongs to another tenant")
	ErrGeneration         = errors.New("answer generation failed")
	ErrBackendUnavailable = errors.New("backend unavailable")
)
