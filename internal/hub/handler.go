// Package hub is a small Mercure-style hub for local development: clients
// subscribe to topics over server-sent events and publishers POST updates.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/btouchard/lumeo/internal/mercure"
)

const (
	// CookieName carries the subscriber token when no query or header token is sent.
	CookieName = "mercureAuthorization"

	defaultHeartbeat = 15 * time.Second
)

var (
	// ErrUnauthorized means no valid token was presented.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the token does not cover the requested topics.
	ErrForbidden = errors.New("forbidden")
)

// Config configures a Hub.
type Config struct {
	// Path is where the hub is mounted, e.g. /.well-known/mercure.
	Path string
	// JWTKey enables authorization when non-empty.
	JWTKey string
	// Heartbeat is the interval between keep-alive comments on open streams.
	Heartbeat time.Duration
	// BufferSize is the number of pending updates kept per subscriber.
	BufferSize int
}

// Hub serves the subscribe and publish endpoints.
type Hub struct {
	cfg    Config
	broker *Broker
}

func New(cfg Config) *Hub {
	if cfg.Path == "" {
		cfg.Path = "/.well-known/mercure"
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	return &Hub{cfg: cfg, broker: NewBroker(cfg.BufferSize)}
}

// Broker exposes the broker, mainly to publish from the same process.
func (h *Hub) Broker() *Broker {
	return h.broker
}

// Routes returns a router with the hub mounted at its path.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get(h.cfg.Path, h.HandleSubscribe)
	r.Post(h.cfg.Path, h.HandlePublish)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}

// HandleSubscribe streams updates for the requested topics until the client leaves.
func (h *Hub) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	if len(topics) == 0 {
		http.Error(w, "missing topic parameter", http.StatusBadRequest)
		return
	}

	if err := h.authorize(r, topics, subscribeToken(r), func(c *mercure.Claims) []string { return c.Mercure.Subscribe }); err != nil {
		writeAuthError(w, err)
		return
	}

	updates, cancel := h.broker.Subscribe(topics)
	defer cancel()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ":\n\n")
	if err := rc.Flush(); err != nil {
		slog.Debug("hub stream cannot flush", "error", err)
		return
	}

	slog.Debug("hub subscriber connected", "topics", topics)
	defer slog.Debug("hub subscriber disconnected", "topics", topics)

	heartbeat := time.NewTicker(h.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ":\n\n"); err != nil {
				return
			}
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.Encode(w, sse.Event{Id: u.ID, Event: u.Type, Data: u.Data}); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// HandlePublish accepts form fields topic (repeatable), data, id and type.
func (h *Hub) HandlePublish(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	topics := r.PostForm["topic"]
	if len(topics) == 0 {
		http.Error(w, "missing topic parameter", http.StatusBadRequest)
		return
	}

	if err := h.authorize(r, topics, publishToken(r), func(c *mercure.Claims) []string { return c.Mercure.Publish }); err != nil {
		writeAuthError(w, err)
		return
	}

	u := Update{
		ID:     r.PostForm.Get("id"),
		Type:   r.PostForm.Get("type"),
		Topics: topics,
		Data:   r.PostForm.Get("data"),
	}
	if u.ID == "" {
		u.ID = "urn:uuid:" + uuid.NewString()
	}

	delivered := h.broker.Publish(u)
	slog.Debug("hub update published", "id", u.ID, "topics", topics, "delivered", delivered)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(u.ID))
}

func (h *Hub) authorize(r *http.Request, topics []string, token string, selectors func(*mercure.Claims) []string) error {
	if h.cfg.JWTKey == "" {
		return nil
	}
	if token == "" {
		return ErrUnauthorized
	}
	claims, err := mercure.ParseToken(h.cfg.JWTKey, token)
	if err != nil {
		slog.Debug("hub token rejected", "path", r.URL.Path, "error", err)
		return ErrUnauthorized
	}
	if !mercure.Allows(selectors(claims), topics) {
		return ErrForbidden
	}
	return nil
}

// subscribeToken looks at the access_token query, then the Authorization
// header, then the cookie.
func subscribeToken(r *http.Request) string {
	if tok := r.URL.Query().Get("access_token"); tok != "" {
		return tok
	}
	return publishToken(r)
}

func publishToken(r *http.Request) string {
	if tok := bearerToken(r); tok != "" {
		return tok
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrForbidden) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	w.Header().Set("WWW-Authenticate", `Bearer realm="mercure"`)
	http.Error(w, err.Error(), http.StatusUnauthorized)
}
