// Package api exposes chatbot detection over HTTP.
//
//	@title			Detectify API
//	@version		1.0
//	@description	Staged, rule-based detection of chatbots and live-chat widgets on websites
//
//	@contact.name	Openlane Support
//	@contact.url	https://github.com/theopenlane/detectify
//	@contact.email	support@openlane.io
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/api
//
//	@schemes	http https
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/internal/analyzer"
	"github.com/theopenlane/detectify/internal/store"
	"github.com/theopenlane/detectify/internal/target"
	"github.com/theopenlane/detectify/internal/types"
)

// serviceName is reported by the health endpoint
const serviceName = "detectify"

// Analyzer runs and stores classifications
type Analyzer interface {
	Analyze(ctx context.Context, url string, hints ...string) types.ClassificationResult
	Retry(ctx context.Context, url string, hints ...string) types.ClassificationResult
	AnalyzeBatch(ctx context.Context, urls []string) types.BatchResult
	ValidateBatch(urls []string) ([]string, error)
	StartBatch(urls []string) (string, error)
	Run(id string) (types.Run, error)
	Lookup(ctx context.Context, url string) (types.Record, error)
	Delete(ctx context.Context, url string) error
	MaxFetchesPerAnalysis() int
}

// EventSource streams change events to subscribers
type EventSource interface {
	Subscribe(buffer int) (<-chan types.Event, func(), error)
}

// Handler manages API endpoints
type Handler struct {
	analyzer    Analyzer
	events      EventSource
	maxBodySize int64
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status                string `json:"status" example:"healthy"`
	Service               string `json:"service" example:"detectify"`
	Timestamp             string `json:"timestamp" example:"2024-01-15T10:30:00Z"`
	MaxFetchesPerAnalysis int    `json:"max_fetches_per_analysis" example:"18"`
}

// DetectRequest asks for the classification of one URL
type DetectRequest struct {
	URL   string   `json:"url" example:"https://example.com"`
	Hints []string `json:"hints,omitempty" example:"Intercom" description:"Vendors a previous run reported, re-verified by the pipeline"`
	Force bool     `json:"force,omitempty" description:"Ignore any cached classification"`
}

// RetryRequest re-runs detection for one URL
type RetryRequest struct {
	URL   string   `json:"url" example:"https://example.com"`
	Hints []string `json:"hints,omitempty"`
}

// BatchRequest asks for the classification of several URLs
type BatchRequest struct {
	URLs []string `json:"urls"`
	Wait bool     `json:"wait,omitempty" description:"Block until the batch finishes instead of starting a background run"`
}

// RunAccepted is returned when a background run starts
type RunAccepted struct {
	RunID string `json:"run_id"`
}

// handleHealth returns service health and the per-analysis fetch budget
//
//	@Summary		Health check
//	@Description	Returns the health status of the service and the worst-case HTTP fetches per analysis
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	Response{data=HealthResponse}
//	@Router			/health [get]
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, http.StatusOK, HealthResponse{
		Status:                "healthy",
		Service:               serviceName,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		MaxFetchesPerAnalysis: h.analyzer.MaxFetchesPerAnalysis(),
	})
}

// handleDetect classifies one URL, serving a fresh cached result unless forced
//
//	@Summary		Detect chatbot
//	@Description	Classifies whether the site at url runs a chatbot or live-chat widget
//	@Description	Cached results younger than the cache TTL are returned unless force is set
//	@Tags			detect
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DetectRequest	true	"URL to classify"
//	@Success		200		{object}	Response{data=types.ClassificationResult}
//	@Failure		400		{object}	Response
//	@Failure		504		{object}	Response
//	@Router			/detect [post]
func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !validURL(w, req.URL) {
		return
	}

	var res types.ClassificationResult
	if req.Force {
		res = h.analyzer.Retry(r.Context(), req.URL, req.Hints...)
	} else {
		res = h.analyzer.Analyze(r.Context(), req.URL, req.Hints...)
	}

	h.respondResult(w, r, res)
}

// handleRetry re-runs detection for one URL, bypassing the cache
//
//	@Summary		Retry detection
//	@Description	Re-runs the detection pipeline for url and overwrites the stored result
//	@Tags			detect
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RetryRequest	true	"URL to re-classify"
//	@Success		200		{object}	Response{data=types.ClassificationResult}
//	@Failure		400		{object}	Response
//	@Failure		504		{object}	Response
//	@Router			/retry [post]
func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req RetryRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !validURL(w, req.URL) {
		return
	}

	h.respondResult(w, r, h.analyzer.Retry(r.Context(), req.URL, req.Hints...))
}

// handleBatch classifies a list of URLs, inline when wait is set and as a background run otherwise
//
//	@Summary		Batch detection
//	@Description	Classifies up to the configured maximum of URLs in small concurrent groups
//	@Description	With wait the finished batch is returned, otherwise a run id to poll
//	@Tags			batch
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BatchRequest	true	"URLs to classify"
//	@Success		200		{object}	Response{data=types.BatchResult}
//	@Success		202		{object}	Response{data=RunAccepted}
//	@Failure		400		{object}	Response
//	@Failure		503		{object}	Response
//	@Failure		504		{object}	Response
//	@Router			/batch [post]
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	urls, err := h.analyzer.ValidateBatch(req.URLs)
	if err != nil {
		respondError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return
	}

	if req.Wait {
		out := h.analyzer.AnalyzeBatch(r.Context(), urls)

		if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			respondError(w, http.StatusGatewayTimeout, errCodeTimeout, "batch did not finish before the request timeout")
			return
		}

		respondOK(w, http.StatusOK, out)

		return
	}

	id, err := h.analyzer.StartBatch(urls)
	if err != nil {
		log.Error().Err(err).Msg("failed to start batch run")
		respondError(w, http.StatusServiceUnavailable, errCodeUnavailable, err.Error())

		return
	}

	respondOK(w, http.StatusAccepted, RunAccepted{RunID: id})
}

// handleRun reports the state of a background batch run
//
//	@Summary		Get batch run
//	@Description	Returns the status and, once finished, the results of a background run
//	@Tags			batch
//	@Produce		json
//	@Param			id	path		string	true	"Run id"
//	@Success		200	{object}	Response{data=types.Run}
//	@Failure		404	{object}	Response
//	@Router			/runs/{id} [get]
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrRunIDRequired.Error())
		return
	}

	run, err := h.analyzer.Run(id)
	if errors.Is(err, analyzer.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, errCodeNotFound, err.Error())
		return
	}

	if err != nil {
		respondError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
		return
	}

	respondOK(w, http.StatusOK, run)
}

// handleGetResult returns the stored classification for a URL
//
//	@Summary		Get stored result
//	@Description	Returns the persisted classification row for url without running detection
//	@Tags			results
//	@Produce		json
//	@Param			url	query		string	true	"Site URL"
//	@Success		200	{object}	Response{data=types.Record}
//	@Failure		400	{object}	Response
//	@Failure		404	{object}	Response
//	@Router			/results [get]
func (h *Handler) handleGetResult(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if !validURL(w, url) {
		return
	}

	rec, err := h.analyzer.Lookup(r.Context(), url)
	if !h.storeOK(w, url, err) {
		return
	}

	respondOK(w, http.StatusOK, rec)
}

// handleDeleteResult removes the stored classification for a URL and emits a delete event
//
//	@Summary		Delete stored result
//	@Description	Removes the persisted classification row for url
//	@Tags			results
//	@Produce		json
//	@Param			url	query		string	true	"Site URL"
//	@Success		200	{object}	Response
//	@Failure		400	{object}	Response
//	@Failure		404	{object}	Response
//	@Router			/results [delete]
func (h *Handler) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if !validURL(w, url) {
		return
	}

	if !h.storeOK(w, url, h.analyzer.Delete(r.Context(), url)) {
		return
	}

	respondOK(w, http.StatusOK, nil)
}

// storeOK maps store errors onto responses and reports whether the handler should continue
func (h *Handler) storeOK(w http.ResponseWriter, url string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, errCodeNotFound, ErrResultNotFound.Error())
	default:
		log.Error().Err(err).Str("url", url).Msg("result store failure")
		respondError(w, http.StatusInternalServerError, errCodeInternal, err.Error())
	}

	return false
}

func (h *Handler) respondResult(w http.ResponseWriter, r *http.Request, res types.ClassificationResult) {
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, errCodeTimeout, "detection did not finish before the request timeout")
		return
	}

	respondOK(w, http.StatusOK, res)
}

// decode limits and decodes the body, writing the error response itself on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.maxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	if err := decodeJSONBody(r, dst); err != nil {
		respondError(w, http.StatusBadRequest, errCodeInvalidRequest, ErrInvalidRequestBody.Error())
		return false
	}

	return true
}

// validURL writes a validation error and reports false when url cannot be normalized
func validURL(w http.ResponseWriter, url string) bool {
	if strings.TrimSpace(url) == "" {
		respondError(w, http.StatusBadRequest, errCodeValidation, ErrURLRequired.Error())
		return false
	}

	if _, err := target.Normalize(url); err != nil {
		respondError(w, http.StatusBadRequest, errCodeValidation, err.Error())
		return false
	}

	return true
}
