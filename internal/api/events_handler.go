package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/events"
)

const sseKeepAlive = 25 * time.Second

// eventsHandler relays generation events from Redis as server-sent events.
// ?project_id= narrows the stream to one project.
func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Redis == nil {
			unavailable(w, "event stream")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		projectID := r.URL.Query().Get("project_id")
		ctx := r.Context()
		stream := events.Subscribe(ctx, cfg.Redis, cfg.Logger)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case ev, ok := <-stream:
				if !ok {
					return
				}
				if projectID != "" && ev.ProjectID != projectID {
					continue
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
				flusher.Flush()
			}
		}
	}
}
