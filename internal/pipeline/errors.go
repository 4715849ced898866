package pipeline

import "errors"

var (
	// ErrStagePanic is recorded when a stage panics
	ErrStagePanic = errors.New("stage panicked")
	// ErrNoFetcher is returned when a pipeline is built without a fetcher
	ErrNoFetcher = errors.New("pipeline requires a fetcher")
)
