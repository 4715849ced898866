package notify

import "errors"

var (
	// ErrPollExhausted is returned when a poll runs out of attempts before reaching a final state
	ErrPollExhausted = errors.New("poll attempts exhausted")
	// ErrMissingToken is returned when the analytics sink has no project token
	ErrMissingToken = errors.New("mixpanel project token is required")
	// ErrBrokerClosed is returned when subscribing to a closed broker
	ErrBrokerClosed = errors.New("broker is closed")
)
