package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/btouchard/lumeo/internal/auth"
	"github.com/btouchard/lumeo/internal/config"
	"github.com/btouchard/lumeo/internal/image"
	"github.com/btouchard/lumeo/internal/mercure"
)

func newSession(cfg *config.Config) *auth.Session {
	return auth.NewSession(
		auth.NewFileTokenStore(cfg.Session.Dir),
		cfg.API.BaseURL,
		auth.WithNavigator(auth.NavigatorFunc(func(path string) {
			if path == auth.LoginPath {
				fmt.Fprintln(os.Stderr, "not logged in: run `lumeo login`")
			}
		})),
	)
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	token := fs.String("token", "", "session token (read from stdin when empty)")
	verify := fs.Bool("verify", true, "fetch the profile to check the token")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg := mustLoadConfig(*configPath)

	tok := strings.TrimSpace(*token)
	if tok == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintf(os.Stderr, "reading token: %v\n", err)
			os.Exit(1)
		}
		tok = strings.TrimSpace(line)
	}
	if tok == "" {
		fmt.Fprintln(os.Stderr, "empty token")
		os.Exit(1)
	}

	session := newSession(cfg)
	if err := session.SetToken(tok); err != nil {
		fmt.Fprintf(os.Stderr, "saving token: %v\n", err)
		os.Exit(1)
	}

	if !*verify || cfg.API.BaseURL == "" {
		fmt.Println("token saved")
		return
	}

	ctx, cancel := commandContext()
	defer cancel()
	if _, err := session.FetchUser(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("logged in")
}

func cmdLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	newSession(mustLoadConfig(*configPath)).Logout(false)
	fmt.Println("logged out")
}

func cmdWhoami(args []string) {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args) // ExitOnError handles errors

	session := newSession(mustLoadConfig(*configPath))
	if !session.CheckAuth() {
		os.Exit(1)
	}

	ctx, cancel := commandContext()
	defer cancel()
	profile, err := session.FetchUser(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetching profile: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(profile)
}

func cmdToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	key := fs.String("key", "", "JWT key (defaults to hub.jwt_key, then dev_hub.jwt_key)")
	subscribe := fs.String("subscribe", "", "comma-separated topics the token may subscribe to (* for all)")
	publish := fs.String("publish", "", "comma-separated topics the token may publish to (* for all)")
	ttl := fs.Duration("ttl", 0, "token lifetime (defaults to hub.token_ttl, 0 means no expiry)")
	_ = fs.Parse(args) // ExitOnError handles errors

	cfg := mustLoadConfig(*configPath)

	k := *key
	if k == "" {
		k = cfg.Hub.JWTKey
	}
	if k == "" {
		k = cfg.DevHub.JWTKey
	}

	lifetime := *ttl
	if lifetime == 0 {
		lifetime = cfg.Hub.TokenTTL
	}

	subTopics := splitFlagList(*subscribe)
	if len(subTopics) == 0 && *publish == "" {
		subTopics = cfg.Hub.Topics
	}

	tok, err := mercure.MintToken(k, subTopics, splitFlagList(*publish), lifetime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minting token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func cmdImage(args []string) {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	base := fs.String("base", "", "base URL (defaults to image.base_url)")
	modifiers := modifierFlag{}
	fs.Var(modifiers, "m", "modifier as key=value (repeatable)")
	_ = fs.Parse(args) // ExitOnError handles errors

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: lumeo image [-base url] [-m key=value ...] <src>")
		os.Exit(1)
	}

	cfg := mustLoadConfig(*configPath)
	p := image.NewProvider(cfg.Image.BaseURL, cfg.Image.SiteURL)
	fmt.Println(p.GetImage(fs.Arg(0), modifiers, *base).URL)
}

// modifierFlag collects repeated -m key=value flags.
type modifierFlag map[string]string

func (m modifierFlag) String() string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}

func (m modifierFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	m[k] = val
	return nil
}

func splitFlagList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	return ctx, func() {
		cancel()
		stop()
	}
}
