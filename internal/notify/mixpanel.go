package notify

import (
	"context"
	"net/http"
	"strings"

	"github.com/mixpanel/mixpanel-go/v2"

	"github.com/theopenlane/detectify/internal/types"
)

// defaultEventName is the analytics event recorded for each classification change
const defaultEventName = "chatbot_classification"

// MixpanelSink records classification changes as analytics events
type MixpanelSink struct {
	client    *mixpanel.Mixpanel
	eventName string
	positives bool
}

// MixpanelOption configures the sink
type MixpanelOption func(*mixpanelConfig)

type mixpanelConfig struct {
	httpClient *http.Client
	eventName  string
	eu         bool
	positives  bool
}

// WithMixpanelHTTPClient sets the HTTP client used for ingestion
func WithMixpanelHTTPClient(client *http.Client) MixpanelOption {
	return func(c *mixpanelConfig) {
		c.httpClient = client
	}
}

// WithEventName overrides the analytics event name
func WithEventName(name string) MixpanelOption {
	return func(c *mixpanelConfig) {
		if strings.TrimSpace(name) != "" {
			c.eventName = name
		}
	}
}

// WithEUResidency sends events to the EU data center
func WithEUResidency(eu bool) MixpanelOption {
	return func(c *mixpanelConfig) {
		c.eu = eu
	}
}

// WithPositivesOnly only records events for URLs with a detected chatbot
func WithPositivesOnly(only bool) MixpanelOption {
	return func(c *mixpanelConfig) {
		c.positives = only
	}
}

// NewMixpanelSink creates an analytics sink for the project token
func NewMixpanelSink(token string, opts ...MixpanelOption) (*MixpanelSink, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	cfg := mixpanelConfig{eventName: defaultEventName}
	for _, opt := range opts {
		opt(&cfg)
	}

	var clientOpts []mixpanel.Options

	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, mixpanel.HttpClient(cfg.httpClient))
	}

	if cfg.eu {
		clientOpts = append(clientOpts, mixpanel.EuResidency())
	}

	return &MixpanelSink{
		client:    mixpanel.NewClient(token, clientOpts...),
		eventName: cfg.eventName,
		positives: cfg.positives,
	}, nil
}

// Name identifies the sink in logs
func (s *MixpanelSink) Name() string {
	return "mixpanel"
}

// Notify tracks a completed classification. Deletes and in-flight statuses are ignored
func (s *MixpanelSink) Notify(ctx context.Context, ev types.Event) error {
	if ev.Kind == types.EventDelete || ev.Status == types.StatusPending || ev.Status == types.StatusProcessing {
		return nil
	}

	if s.positives && !ev.HasChatbot {
		return nil
	}

	event := s.client.NewEvent(s.eventName, ev.URL, map[string]any{
		"url":               ev.URL,
		"kind":              string(ev.Kind),
		"has_chatbot":       ev.HasChatbot,
		"chatbot_solutions": ev.ChatbotSolutions,
		"status":            ev.Status,
		"failed":            ev.Error != "",
	})
	if !ev.UpdatedAt.IsZero() {
		event.AddTime(ev.UpdatedAt)
	}

	return s.client.Track(ctx, []*mixpanel.Event{event})
}
