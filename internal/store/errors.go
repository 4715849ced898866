package store

import "errors"

var (
	// ErrNotFound is returned when no record exists for a URL
	ErrNotFound = errors.New("record not found")
	// ErrEmptyKey is returned when a record has no URL
	ErrEmptyKey = errors.New("record URL is required")
	// ErrCorruptRecord is returned when a stored record cannot be decoded
	ErrCorruptRecord = errors.New("stored record is corrupt")
)
