package cloudflare

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// defaultBaseURL is the root endpoint for the Cloudflare API
	defaultBaseURL = "https://api.cloudflare.com/client/v4"
	// defaultRequestTimeout must exceed the navigation timeout below
	defaultRequestTimeout = 45 * time.Second
	// defaultNavigationTimeout is the browser-side wait for the page to settle
	defaultNavigationTimeout = 30 * time.Second
	// defaultWaitUntil waits for the network to go quiet so injected widgets are present
	defaultWaitUntil = "networkidle2"
)

// Client renders pages through Cloudflare Browser Rendering
type Client struct {
	accountID  string
	apiToken   string
	httpClient *http.Client
	baseURL    string
	navigation time.Duration
	waitUntil  string
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Cloudflare API base URL
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithNavigationTimeout sets how long the headless browser waits for the page
func WithNavigationTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.navigation = d
		}
	}
}

// WithWaitUntil sets the puppeteer load condition, for example load or networkidle0
func WithWaitUntil(condition string) Option {
	return func(c *Client) {
		if condition != "" {
			c.waitUntil = condition
		}
	}
}

// New creates a Cloudflare client for the account
func New(accountID, apiToken string, opts ...Option) (*Client, error) {
	if accountID == "" {
		return nil, ErrMissingAccountID
	}

	if apiToken == "" {
		return nil, ErrMissingAPIToken
	}

	client := &Client{
		accountID:  accountID,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		baseURL:    defaultBaseURL,
		navigation: defaultNavigationTimeout,
		waitUntil:  defaultWaitUntil,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) apiURL(path string) string {
	return fmt.Sprintf("%s/accounts/%s/%s", c.baseURL, c.accountID, path)
}
