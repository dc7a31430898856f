package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mediacore/internal/middleware"
)

// StreamEvents handles GET /v1/events: an SSE stream of the caller's task
// progress snapshots. Pings keep intermediaries from closing idle streams.
func (a *App) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	callerID := middleware.CallerIDFromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := a.Bus.Subscribe(callerID)
	defer a.Bus.Unsubscribe(sub)

	fmt.Fprintf(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ping := time.NewTicker(a.HeartbeatPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case snap, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				a.Logger.Warn().Err(err).Msg("handlers: snapshot encode failed")
				continue
			}
			fmt.Fprintf(w, "event: task\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// PendingEvents handles GET /v1/events/pending: recent snapshots for
// clients recovering after a missed stream, optionally filtered by vendor.
func (a *App) PendingEvents(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.CallerIDFromContext(r.Context())
	vendor := r.URL.Query().Get("vendor")
	a.json(w, http.StatusOK, map[string]any{
		"events": a.Bus.Pending(callerID, vendor),
	})
}
