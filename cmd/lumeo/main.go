package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/btouchard/lumeo/internal/config"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "hub":
		cmdHub(os.Args[2:])
	case "token":
		cmdToken(os.Args[2:])
	case "login":
		cmdLogin(os.Args[2:])
	case "logout":
		cmdLogout(os.Args[2:])
	case "whoami":
		cmdWhoami(os.Args[2:])
	case "image":
		cmdImage(os.Args[2:])
	case "version":
		fmt.Printf("lumeo %s\n", version)
	case "check":
		cmdCheck(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: lumeo <command> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Subscribe to the hub and serve the notification API\n")
	fmt.Fprintf(os.Stderr, "  hub       Start a local development hub\n")
	fmt.Fprintf(os.Stderr, "  token     Mint a hub access token\n")
	fmt.Fprintf(os.Stderr, "  login     Store a session token\n")
	fmt.Fprintf(os.Stderr, "  logout    Remove the session token\n")
	fmt.Fprintf(os.Stderr, "  whoami    Fetch the profile of the session user\n")
	fmt.Fprintf(os.Stderr, "  image     Print the CDN URL of an image\n")
	fmt.Fprintf(os.Stderr, "  check     Validate configuration\n")
	fmt.Fprintf(os.Stderr, "  version   Print version\n")
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	_, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("configuration is valid")
}

// mustLoadConfig loads the configuration or exits.
func mustLoadConfig(path string) *config.Config {
	cfg, err := loadConfig(path)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch cfg.Server.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}),
	}

	if cfg.Server.LogFile != "" {
		f, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			slog.Warn("failed to open log file, using stdout only", "path", cfg.Server.LogFile, "error", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	logger := slog.New(slog.NewMultiHandler(handlers...))
	slog.SetDefault(logger)
}
