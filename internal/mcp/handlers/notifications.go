package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/lumeo/internal/notification"
	"github.com/btouchard/lumeo/internal/notify"
)

const defaultListLimit = 20

// ListNotifications returns a handler that lists the notification window, newest first.
func ListNotifications(store *notification.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		limit := defaultListLimit
		if v, ok := args["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		unreadOnly, _ := args["unread_only"].(bool)

		state := store.State()

		items := make([]notification.Record, 0, len(state.Items))
		for _, r := range state.Items {
			if unreadOnly && !r.Unread {
				continue
			}
			items = append(items, r)
		}
		total := len(items)
		if len(items) > limit {
			items = items[:limit]
		}

		if total == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No notifications. Unread: %d", state.Unread)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "🔔 Notifications (%d shown of %d, unread: %d)\n\n", len(items), total, state.Unread)

		for _, r := range items {
			icon := "✉️"
			if !r.Unread {
				icon = "📭"
			}
			fmt.Fprintf(&sb, "%s **%s** — %s\n", icon, r.Title, r.ID)
			if r.Detail != "" {
				fmt.Fprintf(&sb, "  %s\n", r.Detail)
			}
			fmt.Fprintf(&sb, "  Type: %s | Created: %s\n", r.Type, r.CreatedAt)
			if r.Link != "" {
				fmt.Fprintf(&sb, "  Link: %s\n", r.Link)
			}
			sb.WriteString("\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

// MarkAllRead returns a handler that flags every notification as read.
func MarkAllRead(store *notification.Store, n notify.Notifier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store.MarkAllRead()
		emit(n, notify.Event{Type: notify.EventReadAll})

		return mcp.NewToolResultText(fmt.Sprintf("Marked %d notifications as read.", len(store.Items()))), nil
	}
}

// RemoveNotification returns a handler that drops every notification with the given id.
func RemoveNotification(store *notification.Store, n notify.Notifier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, _ := req.GetArguments()["id"].(string)
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		before := len(store.Items())
		store.Remove(id)
		removed := before - len(store.Items())

		if removed == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No notification with id %s.", id)), nil
		}

		emit(n, notify.Event{Type: notify.EventRemoved, Record: notification.Record{ID: id}, Unread: store.Unread()})
		return mcp.NewToolResultText(fmt.Sprintf("Removed %d notification(s) with id %s. Unread: %d", removed, id, store.Unread())), nil
	}
}

// ClearNotifications returns a handler that empties the window.
func ClearNotifications(store *notification.Store, n notify.Notifier) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		store.Clear()
		emit(n, notify.Event{Type: notify.EventCleared})

		return mcp.NewToolResultText("All notifications cleared."), nil
	}
}

func emit(n notify.Notifier, e notify.Event) {
	if n != nil {
		n.Notify(e)
	}
}
