package cloudflare

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRenderServer(t *testing.T, status int, resp contentResponse) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}

		if r.URL.Path != "/accounts/acct/browser-rendering/content" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
			t.Errorf("expected bearer token, got %s", auth)
		}

		var req contentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}

		if req.URL != "https://acme.example" {
			t.Errorf("unexpected render target %s", req.URL)
		}

		if req.GotoOptions.WaitUntil != defaultWaitUntil || req.GotoOptions.Timeout != defaultNavigationTimeout.Milliseconds() {
			t.Errorf("unexpected goto options %+v", req.GotoOptions)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
}

func newRenderClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	client, err := New("acct", "test-token", WithHTTPClient(server.Client()), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}

	return client
}

func TestRenderHTML(t *testing.T) {
	html := `<html><body><div id="intercom-container"></div></body></html>`

	server := newRenderServer(t, http.StatusOK, contentResponse{Success: true, Result: html})
	defer server.Close()

	got, err := newRenderClient(t, server).RenderHTML(context.Background(), "https://acme.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got != html {
		t.Errorf("expected rendered document, got %q", got)
	}
}

func TestRenderHTMLFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		resp    contentResponse
		wantErr error
	}{
		{
			name:    "unsuccessful",
			status:  http.StatusOK,
			resp:    contentResponse{Success: false, Errors: []apiError{{Code: 1000, Message: "navigation timeout"}}},
			wantErr: ErrRenderingFailed,
		},
		{
			name:    "empty document",
			status:  http.StatusOK,
			resp:    contentResponse{Success: true, Result: "  "},
			wantErr: ErrEmptyRender,
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			resp:    contentResponse{},
			wantErr: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := newRenderServer(t, tc.status, tc.resp)
			defer server.Close()

			_, err := newRenderClient(t, server).RenderHTML(context.Background(), "https://acme.example")
			if err == nil {
				t.Fatal("expected error")
			}

			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
