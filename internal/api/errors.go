package api

import "errors"

var (
	// ErrInvalidRequestBody is returned when the request body cannot be decoded
	ErrInvalidRequestBody = errors.New("invalid request body")
	// ErrMultipleJSONObjects is returned when the request body contains more than one JSON object
	ErrMultipleJSONObjects = errors.New("request body must contain a single JSON object")
	// ErrURLRequired is returned when a request omits the url
	ErrURLRequired = errors.New("url is required")
	// ErrRunIDRequired is returned when the run id path parameter is empty
	ErrRunIDRequired = errors.New("run id is required")
	// ErrResultNotFound is returned when no stored classification exists for a url
	ErrResultNotFound = errors.New("no classification stored for url")
	// ErrEventsUnavailable is returned when no event source is configured
	ErrEventsUnavailable = errors.New("event stream not available")
	// ErrStreamingUnsupported is returned when the response writer cannot flush
	ErrStreamingUnsupported = errors.New("streaming not supported")
)
