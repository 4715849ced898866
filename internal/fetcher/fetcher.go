package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/theopenlane/httpsling"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/theopenlane/detectify/internal/target"
)

// Page is a successfully fetched document
type Page struct {
	// URL is the normalized URL that was requested
	URL string
	// FinalURL is the URL after redirects
	FinalURL string
	// HTML is the decoded body
	HTML string
	// StatusCode is the final HTTP status
	StatusCode int
	// Header holds the response headers
	Header http.Header
	// Truncated is set when the body exceeded the content size cap
	Truncated bool
	// Attempts is the number of attempts used
	Attempts int
}

// Fetcher retrieves HTML with retries, backoff, and user agent rotation
type Fetcher struct {
	options *Options
	client  *http.Client
	limiter *rate.Limiter
	cursor  atomic.Uint64
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a fetcher with the provided options
func New(opts ...Option) *Fetcher {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	client := &http.Client{}
	if options.HTTPClient != nil {
		clone := *options.HTTPClient
		client = &clone
	}

	// attempts are bounded by context deadlines instead
	client.Timeout = 0
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > options.MaxRedirects {
			return ErrTooManyRedirects
		}

		return nil
	}

	f := &Fetcher{
		options: options,
		client:  client,
		sleep:   sleepContext,
	}

	if options.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(options.RequestsPerSecond), options.Burst)
	}

	return f
}

// MaxAttempts returns the default attempt budget
func (f *Fetcher) MaxAttempts() int {
	return f.options.MaxAttempts
}

// Fetch retrieves the document at rawURL. Failures are returned as *Error
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts ...CallOption) (*Page, error) {
	call := callOptions{
		timeout:  f.options.Timeout,
		attempts: f.options.MaxAttempts,
	}

	for _, opt := range opts {
		opt(&call)
	}

	t, err := target.Normalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	start := f.cursor.Add(1) - 1

	var lastErr *Error

	for attempt := 0; attempt < call.attempts; attempt++ {
		if attempt > 0 {
			delay := f.backoff(attempt-1, lastErr)

			log.Debug().Str("url", t.URL).Int("attempt", attempt+1).Dur("delay", delay).Str("reason", string(lastErr.Kind)).Msg("retrying fetch")

			if err := f.sleep(ctx, delay); err != nil {
				break
			}
		}

		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				if lastErr == nil {
					lastErr = classifyTransport(ctx, ctx, t.URL, err)
				}

				break
			}
		}

		ua := f.userAgent(start + uint64(attempt))

		page, ferr := f.attempt(ctx, t.URL, ua, call.timeout)
		if ferr == nil {
			page.Attempts = attempt + 1
			return page, nil
		}

		ferr.Attempts = attempt + 1
		lastErr = ferr

		if !ferr.Retryable() || ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = &Error{Kind: KindNetwork, URL: t.URL, Err: ctx.Err()}
	}

	if lastErr.Kind == KindBlocked && f.options.Inspector != nil {
		lastErr.Provider = f.options.Inspector.Inspect(ctx, t.Host)
	}

	log.Debug().Err(lastErr).Str("url", t.URL).Int("attempts", lastErr.Attempts).Msg("fetch failed")

	return nil, lastErr
}

// attempt performs a single request bounded by timeout
func (f *Fetcher) attempt(ctx context.Context, pageURL, userAgent string, timeout time.Duration) (*Page, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requester, err := httpsling.New(
		httpsling.URL(pageURL),
		httpsling.Method(http.MethodGet),
		httpsling.Header("User-Agent", userAgent),
		httpsling.Header("Accept", defaultAccept),
		httpsling.Header("Accept-Language", f.options.AcceptLanguage),
		httpsling.WithHTTPClient(f.client),
	)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, URL: pageURL, Err: err}
	}

	resp, err := requester.SendWithContext(attemptCtx)
	if err != nil {
		return nil, classifyTransport(ctx, attemptCtx, pageURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is non-critical

	if ferr := classifyStatus(pageURL, resp); ferr != nil {
		return nil, ferr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.options.MaxContentSize+1))
	if err != nil {
		return nil, classifyTransport(ctx, attemptCtx, pageURL, err)
	}

	truncated := int64(len(raw)) > f.options.MaxContentSize
	if truncated {
		raw = raw[:f.options.MaxContentSize]

		log.Debug().Str("url", pageURL).Int64("limit", f.options.MaxContentSize).Msg("response body truncated")
	}

	html := decodeBody(raw, resp.Header.Get("Content-Type"))
	if strings.TrimSpace(html) == "" {
		return nil, &Error{Kind: KindEmptyBody, URL: pageURL, StatusCode: resp.StatusCode, Err: ErrEmptyBody}
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:        pageURL,
		FinalURL:   finalURL,
		HTML:       html,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Truncated:  truncated,
	}, nil
}

// backoff returns the delay before the next attempt
func (f *Fetcher) backoff(attempt int, last *Error) time.Duration {
	delay := f.options.BaseDelay << attempt
	if delay <= 0 || delay > f.options.MaxDelay {
		delay = f.options.MaxDelay
	}

	if last == nil || last.StatusCode != http.StatusTooManyRequests {
		return delay
	}

	if last.RetryAfter > 0 {
		return min(last.RetryAfter, f.options.MaxRetryAfter)
	}

	return min(max(delay, f.options.RateLimitDelay), f.options.MaxRetryAfter)
}

// userAgent picks the user agent for a rotation index
func (f *Fetcher) userAgent(i uint64) string {
	agents := f.options.UserAgents
	if len(agents) == 0 {
		agents = defaultUserAgents
	}

	return agents[i%uint64(len(agents))]
}

// classifyStatus maps non-success statuses onto the failure taxonomy
func classifyStatus(pageURL string, resp *http.Response) *Error {
	code := resp.StatusCode

	switch {
	case code < http.StatusBadRequest:
		return nil
	case code == http.StatusNotFound:
		return &Error{Kind: KindNotFound, URL: pageURL, StatusCode: code}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Kind: KindBlocked, URL: pageURL, StatusCode: code}
	case code == http.StatusTooManyRequests:
		return &Error{Kind: KindHTTPError, URL: pageURL, StatusCode: code, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		return &Error{Kind: KindHTTPError, URL: pageURL, StatusCode: code}
	}
}

// classifyTransport maps a transport error onto the failure taxonomy
func classifyTransport(parent, attemptCtx context.Context, pageURL string, err error) *Error {
	if errors.Is(err, ErrTooManyRedirects) {
		return &Error{Kind: KindNetwork, URL: pageURL, Err: ErrTooManyRedirects}
	}

	if errors.Is(parent.Err(), context.Canceled) {
		return &Error{Kind: KindNetwork, URL: pageURL, Err: context.Canceled}
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: pageURL, Err: context.DeadlineExceeded}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: pageURL, Err: err}
	}

	return &Error{Kind: KindNetwork, URL: pageURL, Err: err}
}

// parseRetryAfter reads a Retry-After header in seconds or HTTP-date form
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}

	return 0
}

// decodeBody converts the body to UTF-8 using the declared or sniffed charset
func decodeBody(raw []byte, contentType string) string {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(raw)
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(raw)
	}

	return string(decoded)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
