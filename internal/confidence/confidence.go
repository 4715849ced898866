// Package confidence turns detection signals into a bounded confidence value and bucket
package confidence

import (
	"math"

	"github.com/theopenlane/detectify/internal/types"
)

// Weights for each signal. The categories sum to 1
const (
	// VendorWeight is credited when a named vendor was matched
	VendorWeight = 0.4
	// GenericVendorWeight is credited when only a generic label was matched
	GenericVendorWeight = 0.2

	// ChatInputWeight is credited for a chat message input
	ChatInputWeight = 0.08
	// SendButtonWeight is credited for a send control
	SendButtonWeight = 0.06
	// MessageBubbleWeight is credited for message bubble markup
	MessageBubbleWeight = 0.06

	// InitCodeWeight is credited for loader or initialization code
	InitCodeWeight = 0.15
	// ConfigWeight is credited for a configuration object or meta tag
	ConfigWeight = 0.15

	// DOMWeight is credited for a visible chat container
	DOMWeight = 0.04
	// WebSocketWeight is credited for a chat websocket endpoint
	WebSocketWeight = 0.03
	// InteractiveWeight is credited when the controls live inside a chat container
	InteractiveWeight = 0.03

	// ProviderFloor is the minimum value once provider detection confirms a named vendor
	ProviderFloor = 0.6
)

// Bucket thresholds
const (
	HighThreshold   = 0.75
	MediumThreshold = 0.5
	LowThreshold    = 0.15

	HighPoints   = 7
	MediumPoints = 4
	LowPoints    = 1

	// VerifiedThreshold is the value at or above which a detection is verified
	VerifiedThreshold = 0.75
	// FailedThreshold is the value below which a detection fails verification
	FailedThreshold = 0.3
)

// Signals are the independent inputs to the calculator
type Signals struct {
	// NamedVendor is set when at least one specific vendor was credited
	NamedVendor bool
	// GenericVendor is set when the generic label was credited
	GenericVendor bool
	ChatInput     bool
	SendButton    bool
	MessageBubble bool
	InitCode      bool
	Config        bool
	DOM           bool
	WebSocket     bool
	Interactive   bool
	// ProviderConfirmed applies the provider floor
	ProviderConfirmed bool
}

// Score is the calculator output
type Score struct {
	// Value is in [0,1]
	Value float64
	// Level is the bucket for Value
	Level types.ConfidenceLevel
	// Points is the raw evidence-point total
	Points int
}

// Calculate scores a set of signals
func Calculate(s Signals) Score {
	var (
		value  float64
		points int
	)

	switch {
	case s.NamedVendor:
		value += VendorWeight
		points += 3
	case s.GenericVendor:
		value += GenericVendorWeight
		points++
	}

	weighted := []struct {
		on     bool
		weight float64
	}{
		{s.ChatInput, ChatInputWeight},
		{s.SendButton, SendButtonWeight},
		{s.MessageBubble, MessageBubbleWeight},
		{s.InitCode, InitCodeWeight},
		{s.Config, ConfigWeight},
		{s.DOM, DOMWeight},
		{s.WebSocket, WebSocketWeight},
		{s.Interactive, InteractiveWeight},
	}

	for _, w := range weighted {
		if w.on {
			value += w.weight
			points++
		}
	}

	if s.ProviderConfirmed && s.NamedVendor {
		value = math.Max(value, ProviderFloor)
	}

	value = Round(math.Min(value, 1))

	return Score{
		Value:  value,
		Level:  Level(value),
		Points: points,
	}
}

// Level buckets a confidence value
func Level(value float64) types.ConfidenceLevel {
	switch {
	case value >= HighThreshold:
		return types.ConfidenceHigh
	case value >= MediumThreshold:
		return types.ConfidenceMedium
	case value >= LowThreshold:
		return types.ConfidenceLow
	default:
		return types.ConfidenceNone
	}
}

// PointsLevel buckets a raw point total
func PointsLevel(points int) types.ConfidenceLevel {
	switch {
	case points >= HighPoints:
		return types.ConfidenceHigh
	case points >= MediumPoints:
		return types.ConfidenceMedium
	case points >= LowPoints:
		return types.ConfidenceLow
	default:
		return types.ConfidenceNone
	}
}

// Verification derives the verification status for a final confidence value
func Verification(value float64, falsePositive, denyListed bool) types.VerificationStatus {
	switch {
	case denyListed:
		return types.VerificationVerified
	case falsePositive || value < FailedThreshold:
		return types.VerificationFailed
	case value >= VerifiedThreshold:
		return types.VerificationVerified
	default:
		return types.VerificationUnverified
	}
}

// Round trims floating point noise to three decimals
func Round(value float64) float64 {
	return math.Round(value*1000) / 1000
}
