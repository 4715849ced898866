package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/theopenlane/detectify/internal/types"
)

// Name identifies the client when registered as a notification sink
func (c *Client) Name() string {
	return "slack"
}

// Notify posts a message for a finished classification. Deletes and in-flight rows are skipped,
// and negative results are skipped unless the client was built with WithPositivesOnly(false)
func (c *Client) Notify(ctx context.Context, ev types.Event) error {
	if !c.notifiable(ev) {
		return nil
	}

	return c.Send(ctx, DetectionMessage(ev))
}

func (c *Client) notifiable(ev types.Event) bool {
	switch {
	case ev.Kind == types.EventDelete:
		return false
	case ev.Status == types.StatusPending || ev.Status == types.StatusProcessing:
		return false
	case c.positivesOnly && !ev.HasChatbot:
		return false
	}

	return true
}

// DetectionMessage renders a classification event as a Block Kit message
func DetectionMessage(ev types.Event) Message {
	headline := "No chatbot detected"

	switch {
	case ev.Error != "":
		headline = "Chatbot detection failed"
	case ev.HasChatbot:
		headline = "Chatbot detected"
	}

	solutions := "none"
	if len(ev.ChatbotSolutions) > 0 {
		solutions = strings.Join(ev.ChatbotSolutions, ", ")
	}

	fields := []TextObject{
		mrkdwn(fmt.Sprintf("*URL:*\n<%s>", ev.URL)),
		mrkdwn(fmt.Sprintf("*Solutions:*\n%s", solutions)),
		mrkdwn(fmt.Sprintf("*Status:*\n%s", ev.Status)),
		mrkdwn(fmt.Sprintf("*Change:*\n%s", ev.Kind)),
	}

	blocks := []Block{
		{Type: "header", Text: plain(headline)},
		{Type: "section", Fields: fields},
	}

	if ev.Error != "" {
		blocks = append(blocks, Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: fmt.Sprintf("*Error:* `%s`", ev.Error)}})
	}

	if !ev.UpdatedAt.IsZero() {
		blocks = append(blocks, Block{
			Type:     "context",
			Elements: []TextObject{mrkdwn("Checked " + ev.UpdatedAt.UTC().Format("2006-01-02 15:04 MST"))},
		})
	}

	return Message{
		Text:   fmt.Sprintf("%s on %s", headline, ev.URL),
		Blocks: blocks,
	}
}
