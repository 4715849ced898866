package slack

import "errors"

var (
	// ErrMissingWebhookURL is returned when no webhook URL is configured
	ErrMissingWebhookURL = errors.New("slack webhook URL is required")
	// ErrNotificationFailed is returned when the webhook request cannot be sent
	ErrNotificationFailed = errors.New("slack notification failed")
	// ErrUnexpectedStatus is returned when Slack answers with a non-200 status
	ErrUnexpectedStatus = errors.New("unexpected slack webhook response status")
)
