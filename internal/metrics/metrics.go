// Package metrics exposes Prometheus collectors for the notification window
// and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
)

const namespace = "lumeo"

// otherKind labels added notifications whose type is not a known platform type.
const otherKind = "other"

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	// Notification window
	Items       prometheus.Gauge
	Unread      prometheus.Gauge
	UnreadLive  prometheus.Gauge
	EventsTotal *prometheus.CounterVec
	AddedByKind *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry, along with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Items: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_items",
			Help:      "Number of notifications in the window",
		}),
		Unread: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_unread",
			Help:      "Unread counter as kept by the store",
		}),
		UnreadLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_unread_live",
			Help:      "Notifications in the window currently flagged unread",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_events_total",
			Help:      "Notification window changes by event type",
		}, []string{"event"}),
		AddedByKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_added_total",
			Help:      "Notifications received by notification type",
		}, []string{"type"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Items,
		m.Unread,
		m.UnreadLive,
		m.EventsTotal,
		m.AddedByKind,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe keeps the window gauges in sync with store. The returned function
// stops observing.
func (m *Metrics) Observe(store *notification.Store) func() {
	m.setState(store.State())
	return store.Observe(m.setState)
}

func (m *Metrics) setState(state notification.State) {
	m.Items.Set(float64(len(state.Items)))
	m.Unread.Set(float64(state.Unread))

	live := 0
	for _, r := range state.Items {
		if r.Unread {
			live++
		}
	}
	m.UnreadLive.Set(float64(live))
}

// Notify counts window change events. It satisfies notify.Notifier.
func (m *Metrics) Notify(event notify.Event) {
	m.EventsTotal.WithLabelValues(event.Type).Inc()
	if event.Type == notify.EventAdded {
		kind := event.Record.Type
		if !notification.IsKnownType(kind) {
			kind = otherKind
		}
		m.AddedByKind.WithLabelValues(kind).Inc()
	}
}

// Middleware records request counts and durations labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
