package main

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/lumeo/internal/auth"
	"github.com/btouchard/lumeo/internal/config"
	"github.com/btouchard/lumeo/internal/notification"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Session.Dir = t.TempDir()
	cfg.Hub.URL = "http://hub.example.com/.well-known/mercure"
	return cfg
}

func TestSessionCookieJar_CarriesToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, auth.NewFileTokenStore(cfg.Session.Dir).Set("secret"))

	jar := sessionCookieJar(cfg)
	require.NotNil(t, jar)

	u, err := url.Parse(cfg.Hub.URL)
	require.NoError(t, err)
	cookies := jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookieName, cookies[0].Name)
	assert.Equal(t, "secret", cookies[0].Value)
}

func TestSessionCookieJar_NoToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)

	jar := sessionCookieJar(cfg)
	require.NotNil(t, jar)

	u, err := url.Parse(cfg.Hub.URL)
	require.NoError(t, err)
	assert.Empty(t, jar.Cookies(u))
}

func TestSubscribe_DisabledWithoutTopics(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Hub.Topics = nil

	unsubscribe := subscribe(context.Background(), cfg, notification.NewStore(), nil)
	require.NotNil(t, unsubscribe)
	assert.NotPanics(t, func() {
		unsubscribe()
		unsubscribe()
	})
}
