package target

import "errors"

var (
	// ErrEmptyURL is returned when the input is blank
	ErrEmptyURL = errors.New("empty URL")
	// ErrInvalidURL is returned when the input cannot be resolved to an http(s) host
	ErrInvalidURL = errors.New("invalid URL format")
	// ErrUnsupportedScheme is returned when the input uses a scheme other than http or https
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)
