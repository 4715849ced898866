package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/types"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.Event
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Notify(_ context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)

	return s.err
}

func (s *recordingSink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]types.Event{}, s.events...)
}

func event(kind types.EventKind, url string) types.Event {
	return types.Event{
		Kind:             kind,
		URL:              url,
		HasChatbot:       true,
		ChatbotSolutions: []string{"Drift"},
		Status:           types.StatusCompleted,
		UpdatedAt:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBrokerDeliversToSubscribersAndSinks(t *testing.T) {
	sink := &recordingSink{}
	b := NewBroker(WithSinks(sink, nil))

	ch, cancel, err := b.Subscribe(4)
	require.NoError(t, err)

	defer cancel()

	b.Publish(context.Background(), event(types.EventInsert, "https://acme.example"))
	b.Flush()

	select {
	case got := <-ch:
		assert.Equal(t, "https://acme.example", got.URL)
		assert.Equal(t, types.EventInsert, got.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	require.Len(t, sink.Events(), 1)
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := NewBroker()

	ch, cancel, err := b.Subscribe(1)
	require.NoError(t, err)

	defer cancel()

	done := make(chan struct{})

	go func() {
		for i := 0; i < 5; i++ {
			b.Publish(context.Background(), event(types.EventUpdate, "https://acme.example"))
		}

		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, ch, 1)
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()

	ch, cancel, err := b.Subscribe(0)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker()

	ch, _, err := b.Subscribe(0)
	require.NoError(t, err)

	b.Close()

	_, open := <-ch
	assert.False(t, open)

	_, _, err = b.Subscribe(0)
	assert.ErrorIs(t, err, ErrBrokerClosed)

	// publishing after close is a no-op
	b.Publish(context.Background(), event(types.EventDelete, "https://acme.example"))
}

func TestBrokerSinkErrorsAreSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("down")}
	b := NewBroker(WithSinks(sink))

	assert.NotPanics(t, func() {
		b.Publish(context.Background(), event(types.EventUpdate, "https://acme.example"))
		b.Flush()
	})

	assert.Len(t, sink.Events(), 1)
}

func TestPoll(t *testing.T) {
	var calls atomic.Int32

	got, err := Poll(context.Background(), time.Millisecond, 5, func(context.Context) (int, bool, error) {
		n := calls.Add(1)
		return int(n), n == 3, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollExhausted(t *testing.T) {
	var calls atomic.Int32

	got, err := Poll(context.Background(), time.Millisecond, 3, func(context.Context) (string, bool, error) {
		calls.Add(1)
		return "processing", false, nil
	})

	assert.ErrorIs(t, err, ErrPollExhausted)
	assert.Equal(t, "processing", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollStopsOnError(t *testing.T) {
	errLookup := errors.New("lookup failed")

	_, err := Poll(context.Background(), time.Millisecond, 3, func(context.Context) (int, bool, error) {
		return 0, false, errLookup
	})

	assert.ErrorIs(t, err, errLookup)
}

func TestPollHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Poll(ctx, time.Hour, 3, func(context.Context) (int, bool, error) {
		return 0, false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMixpanelSink(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client := &http.Client{Transport: transport}

	var tracked []map[string]any

	transport.RegisterRegexpResponder(http.MethodPost, mustRegexp(`^https://api\.mixpanel\.com/track`),
		func(req *http.Request) (*http.Response, error) {
			var events []struct {
				Name       string         `json:"name"`
				Properties map[string]any `json:"properties"`
			}

			require.NoError(t, json.NewDecoder(req.Body).Decode(&events))
			require.Len(t, events, 1)
			assert.Equal(t, "detections", events[0].Name)

			tracked = append(tracked, events[0].Properties)

			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"error":"","status":1}`)),
			}, nil
		},
	)

	sink, err := NewMixpanelSink("token", WithMixpanelHTTPClient(client), WithEventName("detections"))
	require.NoError(t, err)
	assert.Equal(t, "mixpanel", sink.Name())

	require.NoError(t, sink.Notify(context.Background(), event(types.EventInsert, "https://acme.example")))
	require.NoError(t, sink.Notify(context.Background(), event(types.EventDelete, "https://acme.example")))

	processing := event(types.EventUpdate, "https://acme.example")
	processing.Status = types.StatusProcessing
	require.NoError(t, sink.Notify(context.Background(), processing))

	require.Len(t, tracked, 1)
	assert.Equal(t, "https://acme.example", tracked[0]["url"])
	assert.Equal(t, true, tracked[0]["has_chatbot"])
	assert.Equal(t, "https://acme.example", tracked[0]["distinct_id"])
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestMixpanelSinkPositivesOnly(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterRegexpResponder(http.MethodPost, mustRegexp(`^https://api\.mixpanel\.com/track`),
		httpmock.NewStringResponder(http.StatusOK, `{"error":"","status":1}`))

	sink, err := NewMixpanelSink("token", WithMixpanelHTTPClient(&http.Client{Transport: transport}), WithPositivesOnly(true))
	require.NoError(t, err)

	negative := event(types.EventUpdate, "https://acme.example")
	negative.HasChatbot = false
	negative.ChatbotSolutions = []string{}

	require.NoError(t, sink.Notify(context.Background(), negative))
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestMixpanelSinkRequiresToken(t *testing.T) {
	_, err := NewMixpanelSink(" ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func mustRegexp(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}
