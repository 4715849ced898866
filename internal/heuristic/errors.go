package heuristic

import "errors"

// ErrNoKeywords is returned when the detector is built without any terms
var ErrNoKeywords = errors.New("heuristic detector requires at least one keyword")
