package httpx

import (
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/errors"
)

// eventsHeartbeat keeps idle streams alive through proxies that close
// connections without traffic.
const eventsHeartbeat = 25 * time.Second

// Events streams auth-state change notifications for the caller's namespace
// as server-sent events. A tab subscribes once and learns immediately when
// another tab sharing the store logs in, switches organization, or logs out,
// instead of discovering the change on its next navigation. Clients re-run
// their session check on every event.
func (h *AuthHandlers) Events(w http.ResponseWriter, r *http.Request) {
	repo, err := h.repo(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, apperrors.Internal("streaming unsupported"))
		return
	}

	events, err := repo.Watch(r.Context())
	if err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeInternal, "subscribe to state changes"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	// The subscription is live once this comment arrives.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: {\"kind\":%q}\n\n", ev.Kind, ev.Kind)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}
