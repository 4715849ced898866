package heuristic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/types"
)

func newDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()

	d, err := New(nil, opts...)
	require.NoError(t, err)

	return d
}

func TestMatch(t *testing.T) {
	d := newDetector(t)

	testCases := []struct {
		name          string
		url           string
		title         string
		wantMatch     bool
		wantSpecialty bool
		wantConf      float64
	}{
		{name: "keyword in path", url: "https://acme.example/contact-us", wantMatch: true, wantConf: KeywordConfidence},
		{name: "keyword in host", url: "https://helpdesk.acme.example", wantMatch: true, wantConf: KeywordConfidence},
		{name: "keyword in title", url: "https://acme.example", title: "Live Chat with our team", wantMatch: true, wantConf: KeywordConfidence},
		{name: "specialty domain", url: "https://smithorthodontics.example", wantMatch: true, wantSpecialty: true, wantConf: SpecialtyConfidence},
		{name: "hyphenated specialty", url: "https://valley-oral-surgery.example", wantMatch: true, wantSpecialty: true, wantConf: SpecialtyConfidence},
		{name: "no keywords", url: "https://acme.example/about", title: "Acme Dental", wantMatch: false},
		{name: "deny listed host", url: "https://kentdentists.com/contact", wantMatch: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := d.Match(tc.url, tc.title)

			assert.Equal(t, tc.wantMatch, ok)

			if !tc.wantMatch {
				return
			}

			assert.NotEmpty(t, m.Terms)
			assert.Equal(t, tc.wantSpecialty, m.Specialty)
			assert.InDelta(t, tc.wantConf, m.Confidence, 0.0001)
		})
	}
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := newDetector(t, WithClock(func() time.Time { return now }))

	negative := types.ClassificationResult{
		URL:                "https://acme.example/support",
		ChatbotSolutions:   []string{},
		VerificationStatus: types.VerificationVerified,
		Status:             types.StatusCompleted,
	}

	got := d.Apply(negative)

	assert.True(t, got.HasChatbot)
	assert.Equal(t, []string{types.GenericLabel}, got.ChatbotSolutions)
	assert.InDelta(t, KeywordConfidence, got.Confidence, 0.0001)
	assert.Equal(t, types.ConfidenceLow, got.ConfidenceLevel)
	assert.Equal(t, types.VerificationLikely, got.VerificationStatus)
	assert.Equal(t, Status, got.Status)
	assert.Equal(t, now, got.LastChecked)
}

func TestApplyUsesTitle(t *testing.T) {
	d := newDetector(t)

	got := d.Apply(types.ClassificationResult{
		URL:         "https://acme.example",
		Status:      types.StatusCompleted,
		Diagnostics: &types.Diagnostics{Title: "Message us anytime"},
	})

	assert.True(t, got.HasChatbot)
}

func TestApplyLeavesOtherResults(t *testing.T) {
	d := newDetector(t)

	positive := types.ClassificationResult{
		URL:              "https://acme.example/chat",
		HasChatbot:       true,
		ChatbotSolutions: []string{"Drift"},
		Confidence:       0.6,
	}
	assert.Equal(t, positive, d.Apply(positive))

	failed := types.ClassificationResult{
		URL:    "https://acme.example/chat",
		Status: "Error in initial stage",
		Error:  "timeout",
	}
	assert.Equal(t, failed, d.Apply(failed))

	plain := d.Apply(types.ClassificationResult{URL: "https://acme.example/about", Status: types.StatusCompleted})
	assert.False(t, plain.HasChatbot)
	assert.Equal(t, types.StatusCompleted, plain.Status)
}

func TestDetect(t *testing.T) {
	d := newDetector(t)

	assert.True(t, d.Detect(context.Background(), "https://acme.example/help").HasChatbot)
	assert.False(t, d.Detect(context.Background(), "https://acme.example").HasChatbot)
}

func TestCustomKeywords(t *testing.T) {
	d := newDetector(t, WithKeywords([]string{"concierge"}), WithSpecialtyTerms(nil))

	_, ok := d.Match("https://acme.example/concierge", "")
	assert.True(t, ok)

	_, ok = d.Match("https://acme.example/contact", "")
	assert.False(t, ok)

	_, err := New(nil, WithKeywords([]string{" "}), WithSpecialtyTerms(nil))
	assert.ErrorIs(t, err, ErrNoKeywords)
}
