package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btouchard/lumeo/internal/hub"
)

func cmdHub(args []string) {
	fs := flag.NewFlagSet("hub", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg := mustLoadConfig(*configPath)
	setupLogging(cfg)

	h := hub.New(hub.Config{
		Path:   cfg.DevHub.Path,
		JWTKey: cfg.DevHub.JWTKey,
	})

	addr := fmt.Sprintf("%s:%d", cfg.DevHub.Host, cfg.DevHub.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     h.Routes(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("development hub is ready",
			"url", fmt.Sprintf("http://%s%s", addr, cfg.DevHub.Path),
			"authorization", cfg.DevHub.JWTKey != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("hub error", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	slog.Info("shutting down hub")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// Open streams do not end on their own; close them.
		_ = srv.Close()
	}
}
