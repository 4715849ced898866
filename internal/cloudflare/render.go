package cloudflare

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"
)

// contentPath is the Browser Rendering endpoint that returns the rendered HTML
const contentPath = "browser-rendering/content"

type contentRequest struct {
	URL         string      `json:"url"`
	GotoOptions gotoOptions `json:"gotoOptions"`
	RejectTypes []string    `json:"rejectResourceTypes,omitempty"`
}

type gotoOptions struct {
	WaitUntil string `json:"waitUntil"`
	Timeout   int64  `json:"timeout"`
}

type contentResponse struct {
	Success bool       `json:"success"`
	Result  string     `json:"result"`
	Errors  []apiError `json:"errors"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RenderHTML loads the URL in a headless browser and returns the document after scripts ran
func (c *Client) RenderHTML(ctx context.Context, url string) (string, error) {
	body := contentRequest{
		URL: url,
		GotoOptions: gotoOptions{
			WaitUntil: c.waitUntil,
			Timeout:   c.navigation.Milliseconds(),
		},
		// media never carries widget markup
		RejectTypes: []string{"image", "media", "font"},
	}

	requester := httpsling.MustNew(
		httpsling.URL(c.apiURL(contentPath)),
		httpsling.Post(),
		httpsling.BearerAuth(c.apiToken),
		httpsling.JSONBody(body),
		httpsling.WithHTTPClient(c.httpClient),
	)

	var out contentResponse

	resp, err := requester.ReceiveWithContext(ctx, &out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if !out.Success {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}

		return "", fmt.Errorf("%w: %s", ErrRenderingFailed, strings.Join(msgs, "; "))
	}

	if strings.TrimSpace(out.Result) == "" {
		return "", ErrEmptyRender
	}

	log.Debug().Str("url", url).Int("bytes", len(out.Result)).Msg("page rendered")

	return out.Result, nil
}
