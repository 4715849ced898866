package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// eventBuffer is the per-client backlog before events are dropped
const eventBuffer = 32

// handleEvents streams classification changes as server-sent events until the client goes away
//
//	@Summary		Stream classification events
//	@Description	Server-sent events for inserted, updated and deleted classifications
//	@Tags			events
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"event: <kind> data: <event json>"
//	@Failure		503	{object}	Response
//	@Router			/events [get]
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		respondError(w, http.StatusServiceUnavailable, errCodeUnavailable, ErrEventsUnavailable.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, errCodeInternal, ErrStreamingUnsupported.Error())
		return
	}

	events, cancel, err := h.events.Subscribe(eventBuffer)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errCodeUnavailable, err.Error())
		return
	}
	defer cancel()

	// streams are long lived; lift the server write timeout for this response
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("could not clear write deadline for event stream")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("url", ev.URL).Msg("failed to encode event")
				continue
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
