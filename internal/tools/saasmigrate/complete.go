package saasmigrate

import (
	"database/sql"
	"fmt"
	"time"
)

// completionKey is the settings row recording when the migration finished.
// It is read-only evidence for the status probe; re-entrancy is gated by the
// schema-shape check, not this marker.
const completionKey = "saas_migration_completed_at"

// recordCompletion upserts the completion marker with the finish timestamp.
// The generic settings table is created on demand so the recorder works on
// deployments that predate it.
func recordCompletion(sqlDB *sql.DB, now time.Time) error {
	if _, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
)
`); err != nil {
		return fmt.Errorf("ensure settings table: %w", err)
	}

	if _, err := sqlDB.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		completionKey,
		formatTime(now),
	); err != nil {
		return fmt.Errorf("record completion marker: %w", err)
	}
	return nil
}
