package patterns

import "errors"

var (
	// ErrInvalidPattern is returned when a signature expression does not compile
	ErrInvalidPattern = errors.New("invalid pattern expression")
	// ErrInvalidDefinition is returned when a pattern definition cannot be decoded
	ErrInvalidDefinition = errors.New("invalid pattern definition")
	// ErrMissingVendorName is returned when a vendor definition has no name
	ErrMissingVendorName = errors.New("vendor name is required")
	// ErrEmptyVendor is returned when a vendor definition has no expressions
	ErrEmptyVendor = errors.New("vendor has no patterns")
	// ErrFeedDownload is returned when the remote pattern feed cannot be retrieved
	ErrFeedDownload = errors.New("pattern feed download failed")
	// ErrUnexpectedStatus is returned when the pattern feed responds with a non-200 status
	ErrUnexpectedStatus = errors.New("unexpected pattern feed response status")
)
