package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/lumeo/internal/image"
	"github.com/btouchard/lumeo/internal/layout"
	"github.com/btouchard/lumeo/internal/metrics"
	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
)

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) Notify(e notify.Event) {
	l.mu.Lock()
	l.types = append(l.types, e.Type)
	l.mu.Unlock()
}

func (l *eventLog) Types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.types...)
}

func newTestServer(t *testing.T, token string) (*Server, *eventLog, http.Handler) {
	t.Helper()
	events := &eventLog{}
	s := &Server{
		Store:     notification.NewStore(),
		Notifier:  events,
		Layout:    layout.Defaults(),
		Images:    image.NewProvider("https://cdn.example", ""),
		Metrics:   metrics.New(),
		APIToken:  token,
		Heartbeat: time.Hour,
	}
	return s, events, s.Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func TestHealth(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListNotifications_EmptyWindow(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"unread":0,"unreadLive":0}`, rec.Body.String())
}

func TestAddThenList(t *testing.T) {
	t.Parallel()
	_, events, h := newTestServer(t, "")

	rec := do(t, h, http.MethodPost, "/api/notifications", `{"id":7,"type":"message.created","message":"hi"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	st := decodeState(t, do(t, h, http.MethodGet, "/api/notifications", ""))
	require.Len(t, st.Items, 1)
	assert.Equal(t, "7", st.Items[0].ID)
	assert.Equal(t, "New message", st.Items[0].Title)
	assert.Equal(t, "hi", st.Items[0].Detail)
	assert.Equal(t, 1, st.Unread)
	assert.Equal(t, []string{notify.EventAdded}, events.Types())
}

func TestAdd_RejectsNonObject(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/notifications", `[1,2]`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/notifications", `{bad`).Code)
}

func TestReadAllRemoveClear(t *testing.T) {
	t.Parallel()
	s, events, h := newTestServer(t, "")
	s.Store.Add(notification.Record{ID: "a"})
	s.Store.Add(notification.Record{ID: "b"})
	s.Store.Add(notification.Record{ID: "a"})

	st := decodeState(t, do(t, h, http.MethodDelete, "/api/notifications/a", ""))
	assert.Len(t, st.Items, 1)
	assert.Equal(t, 3, st.Unread, "remove leaves the counter alone")
	assert.Equal(t, 1, st.UnreadLive)

	st = decodeState(t, do(t, h, http.MethodDelete, "/api/notifications/missing", ""))
	assert.Len(t, st.Items, 1)

	st = decodeState(t, do(t, h, http.MethodPost, "/api/notifications/read-all", ""))
	assert.Zero(t, st.Unread)
	assert.False(t, st.Items[0].Unread)

	rec := do(t, h, http.MethodDelete, "/api/notifications", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.Store.Items())

	assert.Equal(t, []string{notify.EventRemoved, notify.EventReadAll, notify.EventCleared}, events.Types())
}

func TestLayout(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/api/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"primary":"teal","surface":"slate","darkTheme":false,"heroContainerType":"wide","isWide":true,"isDarkTheme":false}`,
		rec.Body.String())
}

func TestImageURL(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	rec := do(t, h, http.MethodGet, "/api/images/url?src=hero.jpg&w=640&h=320", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://cdn.example/hero.jpg?h=320&w=640"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/images/url?src=a.png&base_url=https://other.example/", "")
	assert.JSONEq(t, `{"url":"https://other.example/a.png"}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/images/url", "").Code)
}

func TestAPIToken_GuardsAPIOnly(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/notifications", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	_, _, h := newTestServer(t, "")

	do(t, h, http.MethodGet, "/api/notifications", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lumeo_http_requests_total{method="GET",route="/api/notifications",status="200"} 1`)
}

func TestStream_SendsStateOnConnectAndChange(t *testing.T) {
	t.Parallel()
	s, _, h := newTestServer(t, "")
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() stateResponse {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = strings.TrimPrefix(line, "data:")
			case line == "" && data != "":
				require.Equal(t, "state", event)
				var st stateResponse
				require.NoError(t, json.Unmarshal([]byte(data), &st))
				return st
			}
		}
	}

	first := next()
	assert.Empty(t, first.Items)

	s.Store.Add(notification.Record{ID: "live"})

	second := next()
	require.Len(t, second.Items, 1)
	assert.Equal(t, "live", second.Items[0].ID)
	assert.Equal(t, 1, second.Unread)
}
