package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/lumeo/internal/auth"
	"github.com/btouchard/lumeo/internal/config"
	"github.com/btouchard/lumeo/internal/httpapi"
	"github.com/btouchard/lumeo/internal/image"
	lumeomcp "github.com/btouchard/lumeo/internal/mcp"
	authmw "github.com/btouchard/lumeo/internal/mcp/middleware"
	"github.com/btouchard/lumeo/internal/mercure"
	"github.com/btouchard/lumeo/internal/metrics"
	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
	"github.com/btouchard/lumeo/internal/store"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg := mustLoadConfig(*configPath)
	setupLogging(cfg)

	slog.Info("starting lumeo",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"hub", cfg.Hub.URL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	notes := notification.NewStore()

	// --- SQLite snapshot ---
	var persistDone chan struct{}
	persistCtx, stopPersist := context.WithCancel(context.Background())
	defer stopPersist()

	if cfg.Database.Persist {
		db, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = db.Close() }()

		snapshot, err := db.LoadNotifications()
		if err != nil {
			slog.Warn("failed to load saved notifications, starting empty", "error", err)
		} else {
			notes.Restore(snapshot.Items, snapshot.Unread)
		}
		slog.Info("database opened", "path", cfg.Database.Path, "restored", len(notes.Items()))

		persister := store.NewPersister(db)
		cancelObserve := notes.Observe(persister.Observe)
		defer cancelObserve()

		persistDone = make(chan struct{})
		go func() {
			persister.Run(persistCtx)
			close(persistDone)
		}()
	}

	// --- Notifiers ---
	var hub *notify.Hub
	notifier := notify.NotifierFunc(func(e notify.Event) { hub.Notify(e) })
	notifiers := []notify.Notifier{notify.NewLogNotifier(nil)}

	var m *metrics.Metrics
	if cfg.Server.Metrics {
		m = metrics.New()
		stopMetrics := m.Observe(notes)
		defer stopMetrics()
		notifiers = append(notifiers, m)
	}

	images := image.NewProvider(cfg.Image.BaseURL, cfg.Image.SiteURL)

	// --- MCP Server ---
	var mcpHTTP http.Handler
	if cfg.Server.MCP {
		mcpServer := lumeomcp.NewServer(&lumeomcp.Deps{
			Store:    notes,
			Notifier: notifier,
			Layout:   cfg.Layout,
			Images:   images,
			Version:  version,
		})
		notifiers = append(notifiers, notify.NewMCPNotifier(mcpServer, time.Second))
		mcpHTTP = server.NewStreamableHTTPServer(mcpServer)
	}

	hub = notify.NewHub(notifiers...)

	// --- Hub subscription ---
	unsubscribe := subscribe(ctx, cfg, notes, notifier)
	defer unsubscribe()

	// --- HTTP Router ---
	api := &httpapi.Server{
		Store:    notes,
		Notifier: notifier,
		Layout:   cfg.Layout,
		Images:   images,
		Metrics:  m,
		APIToken: cfg.Server.APIToken,
	}
	r := api.Routes()
	if mcpHTTP != nil {
		r.With(authmw.BearerAuth(cfg.Server.APIToken, "lumeo")).Handle("/mcp", mcpHTTP)
	}

	// --- HTTP Server ---
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("lumeo is ready", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	unsubscribe()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)

	stopPersist()
	if persistDone != nil {
		<-persistDone
	}

	return err
}

// subscribe opens the hub subscription. The access token is the configured
// one, else one minted from the JWT key, else none.
func subscribe(ctx context.Context, cfg *config.Config, notes *notification.Store, n notify.Notifier) mercure.Unsubscribe {
	if cfg.Hub.URL == "" || len(cfg.Hub.Topics) == 0 {
		slog.Info("hub subscription disabled")
		return func() {}
	}

	token := cfg.Hub.AccessToken
	if token == "" && cfg.Hub.JWTKey != "" {
		minted, err := mercure.MintToken(cfg.Hub.JWTKey, cfg.Hub.Topics, nil, cfg.Hub.TokenTTL)
		if err != nil {
			slog.Warn("failed to mint hub token, subscribing anonymously", "error", err)
		} else {
			token = minted
		}
	}

	var opts []mercure.SubscriberOption
	if cfg.Hub.WithCredentials {
		if jar := sessionCookieJar(cfg); jar != nil {
			opts = append(opts, mercure.WithCookieJar(jar))
		}
	}

	sub := mercure.NewSubscriber(cfg.Hub.URL, opts...)
	slog.Info("subscribing to hub", "url", cfg.Hub.URL, "topics", cfg.Hub.Topics, "authorized", token != "")

	return sub.Subscribe(ctx, cfg.Hub.Topics, notify.PayloadHandler(notes, n), mercure.Options{
		WithCredentials: cfg.Hub.WithCredentials,
		AccessToken:     token,
	})
}

// sessionCookieJar carries the session token as the "token" cookie for the hub origin.
func sessionCookieJar(cfg *config.Config) http.CookieJar {
	jar, err := cookiejar.New(nil)
	if err != nil {
		slog.Warn("failed to create cookie jar", "error", err)
		return nil
	}

	token := newSession(cfg).Token()
	if token == "" {
		return jar
	}

	u, err := url.Parse(cfg.Hub.URL)
	if err != nil {
		return jar
	}
	jar.SetCookies(u, []*http.Cookie{{Name: auth.CookieName, Value: token, Path: "/"}})
	return jar
}
