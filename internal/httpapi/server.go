// Package httpapi exposes the notification window, layout and image URLs over HTTP.
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/lumeo/internal/image"
	"github.com/btouchard/lumeo/internal/layout"
	authmw "github.com/btouchard/lumeo/internal/mcp/middleware"
	"github.com/btouchard/lumeo/internal/metrics"
	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
)

const maxBodySize = 1 << 20

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	Store    *notification.Store
	Notifier notify.Notifier
	Layout   layout.Config
	Images   *image.Provider
	Metrics  *metrics.Metrics
	// APIToken guards /api when non-empty.
	APIToken string
	// Heartbeat is the keep-alive interval of the notification stream.
	Heartbeat time.Duration
}

// stateResponse is the JSON shape of the notification window.
type stateResponse struct {
	Items      []notification.Record `json:"items"`
	Unread     int                   `json:"unread"`
	UnreadLive int                   `json:"unreadLive"`
}

func newStateResponse(s notification.State) stateResponse {
	live := 0
	for _, r := range s.Items {
		if r.Unread {
			live++
		}
	}
	items := s.Items
	if items == nil {
		items = []notification.Record{}
	}
	return stateResponse{Items: items, Unread: s.Unread, UnreadLive: live}
}

type layoutResponse struct {
	layout.Config
	IsWide      bool `json:"isWide"`
	IsDarkTheme bool `json:"isDarkTheme"`
}

// Routes builds the router. Mount extra handlers (e.g. /mcp) on the result.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(authmw.SecurityHeaders)
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Handle("/metrics", s.Metrics.Handler())
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(authmw.BearerAuth(s.APIToken, "lumeo"))

		r.Get("/notifications", s.handleList)
		r.Post("/notifications", s.handleAdd)
		r.Delete("/notifications", s.handleClear)
		r.Post("/notifications/read-all", s.handleReadAll)
		r.Get("/notifications/stream", s.handleStream)
		r.Delete("/notifications/{id}", s.handleRemove)

		r.Get("/layout", s.handleLayout)
		r.Get("/images/url", s.handleImageURL)
	})

	return r
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(s.Store.State()))
}

// handleAdd ingests a hub-style JSON payload, mainly for local testing.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, ok := notification.FromPayload(payload)
	if !ok {
		writeError(w, http.StatusBadRequest, "payload must be a JSON object")
		return
	}

	notify.Deliver(s.Store, s.Notifier, rec)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	s.Store.MarkAllRead()
	s.emit(notify.Event{Type: notify.EventReadAll})
	writeJSON(w, http.StatusOK, newStateResponse(s.Store.State()))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	before := len(s.Store.Items())
	s.Store.Remove(id)
	state := s.Store.State()
	if len(state.Items) < before {
		s.emit(notify.Event{Type: notify.EventRemoved, Record: notification.Record{ID: id}, Unread: state.Unread})
	}
	writeJSON(w, http.StatusOK, newStateResponse(state))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.Store.Clear()
	s.emit(notify.Event{Type: notify.EventCleared})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, layoutResponse{
		Config:      s.Layout,
		IsWide:      s.Layout.IsWide(),
		IsDarkTheme: s.Layout.IsDarkTheme(),
	})
}

// handleImageURL resolves ?src=...; base_url overrides the configured base and
// every other query parameter is a modifier.
func (s *Server) handleImageURL(w http.ResponseWriter, r *http.Request) {
	if s.Images == nil {
		writeError(w, http.StatusNotFound, "image provider not configured")
		return
	}

	q := r.URL.Query()
	src := q.Get("src")
	if src == "" {
		writeError(w, http.StatusBadRequest, "src is required")
		return
	}

	modifiers := make(map[string]string)
	for k, v := range q {
		if k == "src" || k == "base_url" || len(v) == 0 {
			continue
		}
		modifiers[k] = v[0]
	}

	writeJSON(w, http.StatusOK, s.Images.GetImage(src, modifiers, q.Get("base_url")))
}

func (s *Server) emit(e notify.Event) {
	if s.Notifier != nil {
		s.Notifier.Notify(e)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
