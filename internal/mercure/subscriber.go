// Package mercure subscribes to a Mercure-style server-push hub.
//
// Delivery is best effort: a subscription that cannot be opened, a frame that is not
// JSON, or a connection that drops are all ignored without reporting. There is no
// reconnection; callers subscribe again when they need to.
package mercure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// Options tune a single subscription.
type Options struct {
	// WithCredentials sends the cookies held by the subscriber's jar for the hub URL.
	WithCredentials bool
	// AccessToken is appended as the access_token query parameter when set.
	AccessToken string
}

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// MessageHandler receives each decoded message payload.
type MessageHandler func(payload any)

// Subscriber opens subscriptions against one hub.
type Subscriber struct {
	hub    string
	client *http.Client
	jar    http.CookieJar
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithHTTPClient sets the client used to open connections.
// The client must not set a Timeout, which would cut long-lived streams.
func WithHTTPClient(c *http.Client) SubscriberOption {
	return func(s *Subscriber) {
		s.client = c
	}
}

// WithCookieJar sets the jar read by subscriptions opened with Options.WithCredentials.
func WithCookieJar(jar http.CookieJar) SubscriberOption {
	return func(s *Subscriber) {
		s.jar = jar
	}
}

// NewSubscriber creates a Subscriber for the given hub URL. An empty hub is allowed
// and yields subscriptions that do nothing.
func NewSubscriber(hub string, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		hub:    strings.TrimSpace(hub),
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub returns the configured hub URL.
func (s *Subscriber) Hub() string {
	if s == nil {
		return ""
	}
	return s.hub
}

// BuildURL returns the subscription URL for topics: one topic parameter per topic,
// in order, followed by access_token when token is not empty.
func BuildURL(hub string, topics []string, token string) string {
	params := make([]string, 0, len(topics)+1)
	for _, t := range topics {
		params = append(params, "topic="+url.QueryEscape(t))
	}
	if token != "" {
		params = append(params, "access_token="+url.QueryEscape(token))
	}

	sep := "?"
	if strings.Contains(hub, "?") {
		sep = "&"
	}
	return hub + sep + strings.Join(params, "&")
}

// Subscribe opens a connection for topics and calls onMessage for every JSON
// message frame, one at a time, from a single goroutine. A nil subscriber, an empty
// hub, empty topics, or a nil handler produce a subscription that does nothing.
// Cancelling ctx ends the subscription like calling the returned Unsubscribe.
func (s *Subscriber) Subscribe(ctx context.Context, topics []string, onMessage MessageHandler, opts Options) Unsubscribe {
	if s == nil || s.hub == "" || len(topics) == 0 || onMessage == nil {
		return func() {}
	}

	req, err := s.newRequest(ctx, topics, opts)
	if err != nil {
		return func() {}
	}

	reqCtx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(reqCtx)
	sub := &subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go sub.run(s.client, req, onMessage)

	return sub.stop
}

func (s *Subscriber) newRequest(ctx context.Context, topics []string, opts Options) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BuildURL(s.hub, topics, opts.AccessToken), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	if opts.WithCredentials && s.jar != nil {
		for _, c := range s.jar.Cookies(req.URL) {
			req.AddCookie(c)
		}
	}
	return req, nil
}

type subscription struct {
	cancel   context.CancelFunc
	detached atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	bodyMu sync.Mutex
	body   interface{ Close() error }
}

func (sub *subscription) run(client *http.Client, req *http.Request, onMessage MessageHandler) {
	defer close(sub.done)

	resp, err := client.Do(req)
	if err != nil {
		return
	}

	sub.bodyMu.Lock()
	sub.body = resp.Body
	closed := sub.detached.Load()
	sub.bodyMu.Unlock()
	defer func() { _ = resp.Body.Close() }()

	if closed || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}

	_ = readFrames(resp.Body, func(ev frameEvent) {
		if ev.Event != "message" || sub.detached.Load() {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
			return
		}
		if sub.detached.Load() {
			return
		}
		onMessage(payload)
	})
}

// stop detaches the handler and tears the connection down. Errors are ignored.
func (sub *subscription) stop() {
	sub.stopOnce.Do(func() {
		defer func() { _ = recover() }()

		sub.detached.Store(true)
		sub.cancel()

		sub.bodyMu.Lock()
		if sub.body != nil {
			_ = sub.body.Close()
		}
		sub.bodyMu.Unlock()
	})
}
