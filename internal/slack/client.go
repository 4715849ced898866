package slack

import (
	"net/http"
	"strings"
	"time"
)

// defaultRequestTimeout bounds each webhook post
const defaultRequestTimeout = 10 * time.Second

// Client posts detection notifications to a Slack incoming webhook
type Client struct {
	webhookURL    string
	httpClient    *http.Client
	positivesOnly bool
	username      string
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for webhook posts
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPositivesOnly limits notifications to URLs where a chatbot was found
func WithPositivesOnly(only bool) Option {
	return func(c *Client) {
		c.positivesOnly = only
	}
}

// WithUsername overrides the bot name shown on posted messages
func WithUsername(name string) Option {
	return func(c *Client) {
		c.username = strings.TrimSpace(name)
	}
}

// New creates a Slack webhook client
func New(webhookURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(webhookURL) == "" {
		return nil, ErrMissingWebhookURL
	}

	client := &Client{
		webhookURL:    webhookURL,
		httpClient:    &http.Client{Timeout: defaultRequestTimeout},
		positivesOnly: true,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}
