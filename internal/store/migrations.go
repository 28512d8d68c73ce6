package store

// migrations are applied in order; index i is schema version i+1.
var migrations = []string{
	`CREATE TABLE notifications (
		position   INTEGER PRIMARY KEY,
		id         TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT '',
		title      TEXT NOT NULL DEFAULT '',
		detail     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL DEFAULT '',
		link       TEXT NOT NULL DEFAULT '',
		unread     INTEGER NOT NULL DEFAULT 1,
		raw        TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_notifications_id ON notifications(id);
	CREATE TABLE notification_state (
		singleton  INTEGER PRIMARY KEY CHECK (singleton = 1),
		unread     INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);`,
}
