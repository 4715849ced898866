package analyzer

import "errors"

var (
	// ErrEmptyBatch is returned when a batch has no URLs
	ErrEmptyBatch = errors.New("batch contains no urls")
	// ErrBatchTooLarge is returned when a batch exceeds the configured size limit
	ErrBatchTooLarge = errors.New("batch exceeds the maximum number of urls")
	// ErrRunNotFound is returned for unknown or expired run ids
	ErrRunNotFound = errors.New("run not found")
	// ErrNoDetector is returned when the analyzer is built without a detector
	ErrNoDetector = errors.New("analyzer requires a detector")
	// ErrAnalyzerClosed is returned when starting work on a closed analyzer
	ErrAnalyzerClosed = errors.New("analyzer is closed")
	// ErrAnalysisPanic wraps a panic recovered while analyzing a batch entry
	ErrAnalysisPanic = errors.New("analysis panicked")
)
