package pipeline

import (
	"time"

	"github.com/theopenlane/detectify/internal/matcher"
)

// MaxStages bounds the number of stages a single detection runs
const MaxStages = 4

// DefaultFinalizeThreshold is the confidence at which any stage finalizes a positive result
const DefaultFinalizeThreshold = 0.6

// Stage names
const (
	StageInitial      = "initial"
	StageProvider     = "provider"
	StageVerification = "verification"
	StageFunctional   = "functional"
)

// Stage is one step of the detection state machine
type Stage struct {
	// Name labels the stage in statuses and diagnostics
	Name string
	// Threshold is the confidence needed to continue without an advanced signal
	Threshold float64
	// Timeout bounds each fetch attempt in the stage
	Timeout time.Duration
	// Retries lets the stage use the fetcher's full attempt budget; other stages fetch once
	Retries bool
	// Render fetches the page through the renderer when one is configured
	Render bool
	// Matcher selects the checks run for the stage
	Matcher matcher.Options
}

// DefaultStages returns the initial, provider, verification, and functional stages
func DefaultStages() []Stage {
	return []Stage{
		{
			Name:      StageInitial,
			Threshold: 0.1,
			Timeout:   8 * time.Second,
			Matcher:   matcher.Options{SmartDetection: true},
		},
		{
			Name:      StageProvider,
			Threshold: 0.3,
			Timeout:   12 * time.Second,
			Matcher:   matcher.Options{SmartDetection: true, ProviderDetection: true},
		},
		{
			Name:      StageVerification,
			Threshold: 0.5,
			Timeout:   15 * time.Second,
			Matcher:   matcher.Options{SmartDetection: true, ProviderDetection: true, DeepVerification: true},
		},
		{
			Name:      StageFunctional,
			Threshold: 0.8,
			Timeout:   18 * time.Second,
			Retries:   true,
			Render:    true,
			Matcher: matcher.Options{
				SmartDetection:       true,
				ProviderDetection:    true,
				DeepVerification:     true,
				FunctionalValidation: true,
				HiddenDetection:      true,
			},
		},
	}
}

// StagesWithThresholds returns the default stages with overridden thresholds and timeouts.
// Zero values keep the defaults
func StagesWithThresholds(thresholds []float64, timeouts []time.Duration) []Stage {
	stages := DefaultStages()

	for i := range stages {
		if i < len(thresholds) && thresholds[i] > 0 {
			stages[i].Threshold = thresholds[i]
		}

		if i < len(timeouts) && timeouts[i] > 0 {
			stages[i].Timeout = timeouts[i]
		}
	}

	return stages
}
