package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/lumeo/internal/mcp/handlers"
)

func registerTools(s *server.MCPServer, deps *Deps) {
	// list_notifications — Read the notification window
	s.AddTool(
		mcp.NewTool("list_notifications",
			mcp.WithDescription("List received notifications, newest first, with the unread counter."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of notifications to return (default: 20)"),
			),
			mcp.WithBoolean("unread_only",
				mcp.Description("Only list notifications that are still unread"),
			),
		),
		handlers.ListNotifications(deps.Store),
	)

	// mark_all_read — Flag everything as read
	s.AddTool(
		mcp.NewTool("mark_all_read",
			mcp.WithDescription("Mark every notification as read and reset the unread counter."),
		),
		handlers.MarkAllRead(deps.Store, deps.Notifier),
	)

	// remove_notification — Drop notifications by id
	s.AddTool(
		mcp.NewTool("remove_notification",
			mcp.WithDescription("Remove every notification with the given id. The unread counter is not changed."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Notification id"),
			),
		),
		handlers.RemoveNotification(deps.Store, deps.Notifier),
	)

	// clear_notifications — Empty the window
	s.AddTool(
		mcp.NewTool("clear_notifications",
			mcp.WithDescription("Remove all notifications and reset the unread counter."),
		),
		handlers.ClearNotifications(deps.Store, deps.Notifier),
	)

	// get_layout — Theme and layout settings
	s.AddTool(
		mcp.NewTool("get_layout",
			mcp.WithDescription("Show the theme and layout settings."),
			mcp.WithNumber("width",
				mcp.Description("Viewport width in pixels; reports whether the mobile layout applies"),
			),
		),
		handlers.GetLayout(deps.Layout),
	)

	// image_url — Resolve an image source
	if deps.Images != nil {
		s.AddTool(
			mcp.NewTool("image_url",
				mcp.WithDescription("Resolve an image source and its transform modifiers to a CDN URL."),
				mcp.WithString("src",
					mcp.Required(),
					mcp.Description("Image path relative to the base URL"),
				),
				mcp.WithObject("modifiers",
					mcp.Description("Transform modifiers, e.g. {\"w\": 640}"),
				),
				mcp.WithString("base_url",
					mcp.Description("Override the configured base URL"),
				),
			),
			handlers.ImageURL(deps.Images),
		)
	}
}
