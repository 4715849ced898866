package slack

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	client, err := New("https://hooks.slack.com/services/T123/B456/xyz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.webhookURL != "https://hooks.slack.com/services/T123/B456/xyz" {
		t.Errorf("expected webhook URL to be set, got %s", client.webhookURL)
	}

	if client.httpClient == nil {
		t.Fatal("expected default HTTP client to be set")
	}

	if !client.positivesOnly {
		t.Error("expected positives-only to be the default")
	}
}

func TestNewMissingWebhookURL(t *testing.T) {
	for _, url := range []string{"", "   "} {
		_, err := New(url)
		if !errors.Is(err, ErrMissingWebhookURL) {
			t.Errorf("New(%q): expected ErrMissingWebhookURL, got %v", url, err)
		}
	}
}

func TestNewOptions(t *testing.T) {
	custom := &http.Client{Timeout: 30 * time.Second}

	client, err := New("https://hooks.slack.com/test",
		WithHTTPClient(custom),
		WithPositivesOnly(false),
		WithUsername(" detectify "),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.httpClient != custom {
		t.Error("expected custom HTTP client to be set")
	}

	if client.positivesOnly {
		t.Error("expected positives-only to be disabled")
	}

	if client.username != "detectify" {
		t.Errorf("expected trimmed username, got %q", client.username)
	}
}

func TestNewWithNilHTTPClient(t *testing.T) {
	client, err := New("https://hooks.slack.com/test", WithHTTPClient(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.httpClient == nil {
		t.Fatal("expected default HTTP client to remain when nil is passed")
	}
}
