package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"
)

// handleEvents streams job events to the client as Server-Sent Events.
//
// The first frame is always "connected". Events emitted before the
// subscription are not replayed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	sub := s.events.Subscribe()
	defer s.events.Unsubscribe(sub)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	greeting := struct {
		Type consts.EventType `json:"type"`
		Data string           `json:"data"`
	}{consts.EventConnected, consts.GreetingMessage}
	if err := writeFrame(w, consts.EventConnected, greeting); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logging.E("Event stream cannot flush: %v", err)
		return
	}

	keepAlive := time.NewTicker(consts.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logging.D(2, "Event stream for %s closed: %v", r.RemoteAddr, err)
				return
			}

		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}

		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// writeEvent writes one job event frame.
func writeEvent(w http.ResponseWriter, ev models.Event) error {
	return writeFrame(w, ev.Type, ev)
}

// writeFrame writes a named SSE frame with a JSON payload.
func writeFrame(w http.ResponseWriter, name consts.EventType, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
