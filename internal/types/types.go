package types

import (
	"time"
)

// VerificationStatus describes how much trust a classification deserves
type VerificationStatus string

const (
	// VerificationVerified marks a result backed by strong evidence or a deny-list short circuit
	VerificationVerified VerificationStatus = "verified"
	// VerificationUnverified marks a positive result with moderate evidence
	VerificationUnverified VerificationStatus = "unverified"
	// VerificationFailed marks a result with weak evidence or a flagged false positive
	VerificationFailed VerificationStatus = "failed"
	// VerificationUnknown is used before any analysis has completed
	VerificationUnknown VerificationStatus = "unknown"
	// VerificationLikely marks results produced by the keyword heuristic pass
	VerificationLikely VerificationStatus = "likely"
)

// ConfidenceLevel is the discrete bucket for a confidence score
type ConfidenceLevel string

const (
	// ConfidenceNone is used for scores below the low floor
	ConfidenceNone ConfidenceLevel = "none"
	// ConfidenceLow is used for scores at or above the low floor
	ConfidenceLow ConfidenceLevel = "low"
	// ConfidenceMedium is used for scores at or above 0.5
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceHigh is used for scores at or above 0.75
	ConfidenceHigh ConfidenceLevel = "high"
)

// Status labels stored on persisted records
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// GenericLabel is the catch-all solution name used when no specific vendor is identified
const GenericLabel = "Website Chatbot"

// ClassificationResult is the outcome of one detection run for one target
type ClassificationResult struct {
	URL                string             `json:"url" example:"https://example.com" description:"Normalized URL that was analyzed"`
	HasChatbot         bool               `json:"has_chatbot" example:"true" description:"Whether a chatbot widget was detected"`
	ChatbotSolutions   []string           `json:"chatbot_solutions" example:"Intercom" description:"Deduplicated vendor names or a single generic label"`
	Confidence         float64            `json:"confidence" example:"0.82" description:"Confidence score in the range 0-1"`
	ConfidenceLevel    ConfidenceLevel    `json:"confidence_level" example:"high" description:"Discrete confidence bucket"`
	VerificationStatus VerificationStatus `json:"verification_status" example:"verified" description:"verified, unverified, failed, unknown or likely"`
	Status             string             `json:"status" example:"completed" description:"Human readable status or error label"`
	Error              string             `json:"error,omitempty" example:"timeout" description:"Last error message when the analysis failed"`
	LastChecked        time.Time          `json:"last_checked" description:"When the analysis finished"`
	Cached             bool               `json:"cached,omitempty" description:"Whether the result was served from the cache"`
	Diagnostics        *Diagnostics       `json:"diagnostics,omitempty" description:"Per-stage evidence for debugging"`
}

// Normalize enforces the result invariants: has_chatbot follows the solution list and a zero
// confidence never reports a chatbot
func (r *ClassificationResult) Normalize() {
	if r.ChatbotSolutions == nil {
		r.ChatbotSolutions = []string{}
	}

	if r.Confidence <= 0 {
		r.Confidence = 0
		r.ChatbotSolutions = []string{}
	}

	if r.Confidence > 1 {
		r.Confidence = 1
	}

	r.HasChatbot = len(r.ChatbotSolutions) > 0

	if r.VerificationStatus == "" {
		r.VerificationStatus = VerificationUnknown
	}

	if r.ConfidenceLevel == "" {
		r.ConfidenceLevel = ConfidenceNone
	}
}

// Failed reports whether the result carries an error rather than a classification
func (r ClassificationResult) Failed() bool {
	return r.Error != ""
}

// Diagnostics carries optional observability data for a detection run
type Diagnostics struct {
	Stages    []StageReport `json:"stages,omitempty"`
	Title     string        `json:"title,omitempty"`
	FinalURL  string        `json:"final_url,omitempty"`
	Attempts  int           `json:"attempts,omitempty"`
	Transient bool          `json:"transient,omitempty"`
}

// StageReport summarizes one pipeline stage
type StageReport struct {
	Stage          string   `json:"stage"`
	Threshold      float64  `json:"threshold"`
	Confidence     float64  `json:"confidence"`
	Points         int      `json:"points"`
	Proceed        bool     `json:"proceed"`
	AdvancedSignal bool     `json:"advanced_signal,omitempty"`
	Vendors        []string `json:"vendors,omitempty"`
	Patterns       []string `json:"patterns,omitempty"`
	Error          string   `json:"error,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
}

// Record is the persisted row for a URL
type Record struct {
	URL                string    `json:"url"`
	HasChatbot         bool      `json:"has_chatbot"`
	ChatbotSolutions   []string  `json:"chatbot_solutions"`
	Status             string    `json:"status"`
	Confidence         *float64  `json:"confidence"`
	VerificationStatus *string   `json:"verification_status"`
	LastChecked        time.Time `json:"last_checked"`
	Error              *string   `json:"error"`
}

// RecordFromResult converts a classification into its persisted shape
func RecordFromResult(r ClassificationResult) Record {
	confidence := r.Confidence
	verification := string(r.VerificationStatus)

	rec := Record{
		URL:                r.URL,
		HasChatbot:         r.HasChatbot,
		ChatbotSolutions:   append([]string{}, r.ChatbotSolutions...),
		Status:             r.Status,
		Confidence:         &confidence,
		VerificationStatus: &verification,
		LastChecked:        r.LastChecked,
	}

	if r.Error != "" {
		msg := r.Error
		rec.Error = &msg
	}

	return rec
}

// Result rebuilds a classification from a persisted row
func (rec Record) Result() ClassificationResult {
	out := ClassificationResult{
		URL:              rec.URL,
		HasChatbot:       rec.HasChatbot,
		ChatbotSolutions: append([]string{}, rec.ChatbotSolutions...),
		Status:           rec.Status,
		LastChecked:      rec.LastChecked,
	}

	if rec.Confidence != nil {
		out.Confidence = *rec.Confidence
	}

	if rec.VerificationStatus != nil {
		out.VerificationStatus = VerificationStatus(*rec.VerificationStatus)
	}

	if rec.Error != nil {
		out.Error = *rec.Error
	}

	return out
}

// EventKind is the change type carried by a notification
type EventKind string

const (
	// EventInsert is emitted when a URL is recorded for the first time
	EventInsert EventKind = "insert"
	// EventUpdate is emitted when an existing record changes
	EventUpdate EventKind = "update"
	// EventDelete is emitted when a record is removed
	EventDelete EventKind = "delete"
)

// Event is a change notification for a persisted record
type Event struct {
	Kind             EventKind `json:"kind"`
	URL              string    `json:"url"`
	HasChatbot       bool      `json:"has_chatbot"`
	ChatbotSolutions []string  `json:"chatbot_solutions"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// EventFromRecord builds a notification for the given record
func EventFromRecord(kind EventKind, rec Record) Event {
	ev := Event{
		Kind:             kind,
		URL:              rec.URL,
		HasChatbot:       rec.HasChatbot,
		ChatbotSolutions: append([]string{}, rec.ChatbotSolutions...),
		Status:           rec.Status,
		UpdatedAt:        rec.LastChecked,
	}

	if rec.Error != nil {
		ev.Error = *rec.Error
	}

	return ev
}

// RunStatus is the lifecycle state of a background batch run
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// Terminal reports whether the run will not change again
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// Run tracks a background batch analysis
type Run struct {
	ID        string                 `json:"id"`
	Status    RunStatus              `json:"status"`
	URLs      []string               `json:"urls"`
	Results   []ClassificationResult `json:"results,omitempty"`
	Summary   BatchSummary           `json:"summary"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// BatchSummary aggregates the outcome of a batch
type BatchSummary struct {
	Total     int  `json:"total"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Chatbots  int  `json:"chatbots"`
	Fallback  bool `json:"fallback_applied,omitempty"`
}

// BatchResult is the ordered outcome of a batch analysis
type BatchResult struct {
	Results []ClassificationResult `json:"results"`
	Summary BatchSummary           `json:"summary"`
}
