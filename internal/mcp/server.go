package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/lumeo/internal/image"
	"github.com/btouchard/lumeo/internal/layout"
	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
)

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Store    *notification.Store
	Notifier notify.Notifier
	Layout   layout.Config
	Images   *image.Provider
	Version  string
}

// NewServer creates and configures the MCP server with all tools registered.
func NewServer(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"Lumeo",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s, deps)

	return s
}
