package slack

import (
	"context"
	"fmt"
	"net/http"

	"github.com/theopenlane/httpsling"
)

// Message is a Slack webhook payload
type Message struct {
	// Text is the fallback shown in notifications
	Text string `json:"text"`
	// Username overrides the webhook's configured bot name
	Username string `json:"username,omitempty"`
	// Blocks holds the Block Kit layout
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is a Slack Block Kit block
type Block struct {
	Type     string       `json:"type"`
	Text     *TextObject  `json:"text,omitempty"`
	Fields   []TextObject `json:"fields,omitempty"`
	Elements []TextObject `json:"elements,omitempty"`
}

// TextObject is a plain_text or mrkdwn text object
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func plain(text string) *TextObject {
	return &TextObject{Type: "plain_text", Text: text}
}

func mrkdwn(text string) TextObject {
	return TextObject{Type: "mrkdwn", Text: text}
}

// Send posts a message to the configured webhook
func (c *Client) Send(ctx context.Context, msg Message) error {
	if msg.Username == "" {
		msg.Username = c.username
	}

	requester := httpsling.MustNew(
		httpsling.URL(c.webhookURL),
		httpsling.Post(),
		httpsling.JSONBody(msg),
		httpsling.WithHTTPClient(c.httpClient),
	)

	resp, err := requester.SendWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return nil
}
