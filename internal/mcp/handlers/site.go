package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/lumeo/internal/image"
	"github.com/btouchard/lumeo/internal/layout"
)

// GetLayout returns a handler describing the layout settings.
func GetLayout(cfg layout.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := fmt.Sprintf("Primary: %s\nSurface: %s\nDark theme: %t\nHero container: %s",
			cfg.Primary, cfg.Surface, cfg.IsDarkTheme(), cfg.HeroContainerType)

		if width, ok := req.GetArguments()["width"].(float64); ok && width > 0 {
			text += fmt.Sprintf("\nMobile at %dpx: %t", int(width), layout.IsMobile(int(width)))
		}
		return mcp.NewToolResultText(text), nil
	}
}

// ImageURL returns a handler that resolves an image source to its CDN URL.
func ImageURL(p *image.Provider) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		src, _ := args["src"].(string)
		if src == "" {
			return mcp.NewToolResultError("src is required"), nil
		}
		base, _ := args["base_url"].(string)

		modifiers := map[string]string{}
		if m, ok := args["modifiers"].(map[string]any); ok {
			for k, v := range m {
				modifiers[k] = fmt.Sprint(v)
			}
		}

		return mcp.NewToolResultText(p.GetImage(src, modifiers, base).URL), nil
	}
}
