package notify

import "log/slog"

// LogNotifier writes every event to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier; a nil logger means slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(event Event) {
	switch event.Type {
	case EventAdded:
		n.logger.Info("notification received",
			"id", event.Record.ID,
			"type", event.Record.Type,
			"title", event.Record.Title,
			"unread", event.Unread)
	case EventRemoved:
		n.logger.Info("notification removed", "id", event.Record.ID, "unread", event.Unread)
	default:
		n.logger.Info("notifications updated", "event", event.Type, "unread", event.Unread)
	}
}
