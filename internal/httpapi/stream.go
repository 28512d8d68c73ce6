package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"

	"github.com/btouchard/lumeo/internal/notification"
)

const defaultStreamHeartbeat = 15 * time.Second

// handleStream sends the window as an SSE "state" event on connect and after
// every change. Intermediate states are coalesced when the client is slow.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	changes := make(chan notification.State, 1)
	cancel := s.Store.Observe(func(st notification.State) {
		select {
		case changes <- st:
		default:
			// Replace the pending state with the newer one.
			select {
			case <-changes:
			default:
			}
			select {
			case changes <- st:
			default:
			}
		}
	})
	defer cancel()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeState(w, s.Store.State()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	heartbeat := s.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultStreamHeartbeat
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				return
			}
		case st := <-changes:
			if err := writeState(w, st); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeState(w http.ResponseWriter, st notification.State) error {
	return sse.Encode(w, sse.Event{Event: "state", Data: newStateResponse(st)})
}
