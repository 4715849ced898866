//go:build generate

package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theopenlane/detectify/internal/pipeline"
)

func TestDefaultConfigFillsStageLists(t *testing.T) {
	cfg := defaultConfig()

	stages := pipeline.DefaultStages()
	require.Len(t, cfg.Pipeline.Thresholds, len(stages))
	require.Len(t, cfg.Pipeline.StageTimeouts, len(stages))

	for i, stage := range stages {
		assert.Equal(t, stage.Threshold, cfg.Pipeline.Thresholds[i])
		assert.Equal(t, stage.Timeout, cfg.Pipeline.StageTimeouts[i])
	}

	assert.NotEmpty(t, cfg.Fallback.Keywords)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestSectionValuesBlanksSecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mixpanel.Token = "secret-token"
	cfg.Slack.WebhookURL = "https://hooks.example.com/secret"

	mixpanel := sectionValues(reflect.ValueOf(cfg.Mixpanel))
	assert.Equal(t, "", mixpanel["token"])

	slack := sectionValues(reflect.ValueOf(cfg.Slack))
	assert.Equal(t, "", slack["webhookurl"])
}

func TestSectionValuesRendersDurations(t *testing.T) {
	cfg := defaultConfig()

	server := sectionValues(reflect.ValueOf(cfg.Server))
	assert.Equal(t, "30s", server["readtimeout"])

	pipe := sectionValues(reflect.ValueOf(cfg.Pipeline))
	timeouts, ok := pipe["stagetimeouts"].([]string)
	require.True(t, ok)
	assert.Equal(t, "8s", timeouts[0])
}
