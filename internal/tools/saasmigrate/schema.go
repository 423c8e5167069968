package saasmigrate

import (
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/bracketspace/internal/platform/storage/sqliteadd"
)

// subscriptionColumns are the additive users columns, applied one at a time
// so a partial prior run can be replayed. The marker column is deliberately
// absent here; evolveIdentityStore adds it after every other identity-store
// change.
var subscriptionColumns = []string{
	"subscription_expires_at TEXT",
	"trial_ends_at TEXT",
	"is_active INTEGER DEFAULT 1",
	"activated_at TEXT",
	"invite_key_used TEXT",
	"display_name TEXT",
	"last_login_at TEXT",
}

// markerColumn is probed by the idempotency guard before any identity-store
// mutation. It is the final addition of identity evolution, so its presence
// means the whole identity-store stage ran to completion; a run that died
// mid-stage stays undetected and replays from the start.
const markerColumn = "subscription_status"

const markerColumnDefinition = "subscription_status TEXT DEFAULT 'trial'"

const createInviteTablesSQL = `
CREATE TABLE IF NOT EXISTS invite_keys (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'single',
    uses_remaining INTEGER,
    total_uses INTEGER NOT NULL DEFAULT 0,
    expires_at TEXT,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_by INTEGER REFERENCES users(id),
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invite_keys_code ON invite_keys(code);

CREATE TABLE IF NOT EXISTS invite_key_usage (
    id TEXT PRIMARY KEY,
    key_id TEXT NOT NULL REFERENCES invite_keys(id),
    user_id INTEGER NOT NULL REFERENCES users(id),
    used_at TEXT NOT NULL,
    ip_address TEXT
);
CREATE INDEX IF NOT EXISTS idx_invite_key_usage_key_id ON invite_key_usage(key_id);

CREATE TABLE IF NOT EXISTS impersonation_sessions (
    id TEXT PRIMARY KEY,
    superadmin_id INTEGER NOT NULL REFERENCES users(id),
    target_user_id INTEGER NOT NULL REFERENCES users(id),
    started_at TEXT NOT NULL,
    ended_at TEXT,
    reason TEXT
);

CREATE TABLE IF NOT EXISTS platform_settings (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    trial_duration_days INTEGER NOT NULL DEFAULT 14,
    allow_signups INTEGER NOT NULL DEFAULT 1,
    require_invite_key INTEGER NOT NULL DEFAULT 1,
    maintenance_mode INTEGER NOT NULL DEFAULT 0,
    maintenance_message TEXT NOT NULL DEFAULT '',
    feature_flags TEXT NOT NULL DEFAULT '{}',
    pricing TEXT NOT NULL DEFAULT '{}',
    updated_at TEXT
);
`

// evolveIdentityStore applies the additive identity-store DDL: the four new
// tables with their indexes, the subscription columns on users, and the
// activated_at backfill. Duplicate-column failures are skippable; everything
// else aborts the run.
func evolveIdentityStore(sqlDB *sql.DB, runStart time.Time, out io.Writer) error {
	if _, err := sqlDB.Exec(createInviteTablesSQL); err != nil {
		if !sqliteadd.IsAlreadyExistsError(err) {
			return fmt.Errorf("create multi-tenant tables: %w", err)
		}
	}

	added := 0
	for _, definition := range subscriptionColumns {
		ok, err := sqliteadd.AddColumn(sqlDB, "users", definition)
		if err != nil {
			return err
		}
		if ok {
			added++
		}
	}

	if _, err := sqlDB.Exec(
		"UPDATE users SET activated_at = COALESCE(NULLIF(created_at, ''), ?) WHERE activated_at IS NULL",
		formatTime(runStart),
	); err != nil {
		return fmt.Errorf("backfill activated_at: %w", err)
	}

	if _, err := sqlDB.Exec(
		"INSERT OR IGNORE INTO platform_settings (id, updated_at) VALUES (1, ?)",
		formatTime(runStart),
	); err != nil {
		return fmt.Errorf("seed platform settings: %w", err)
	}

	// The marker lands last so the guard's probe implies the stage completed.
	ok, err := sqliteadd.AddColumn(sqlDB, "users", markerColumnDefinition)
	if err != nil {
		return err
	}
	if ok {
		added++
	}
	fmt.Fprintf(out, "Added %d of %d subscription columns to users\n", added, len(subscriptionColumns)+1)

	return nil
}

// evolveResourceStore adds the owner column and its index to tournaments.
// It is re-attempted on every run, including runs the idempotency guard
// otherwise skips, because a prior run may have failed between the two
// stores. A store without a tournaments table has nothing to evolve.
func evolveResourceStore(sqlDB *sql.DB, out io.Writer) error {
	present, err := sqliteadd.TableExists(sqlDB, "tournaments")
	if err != nil {
		return err
	}
	if !present {
		fmt.Fprintf(out, "No tournaments table in resource store, skipping owner column\n")
		return nil
	}

	exists, err := sqliteadd.ColumnExists(sqlDB, "tournaments", "owner_id")
	if err != nil {
		return err
	}
	if !exists {
		if _, err := sqliteadd.AddColumn(sqlDB, "tournaments", "owner_id INTEGER"); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added owner_id column to tournaments\n")
	}

	if _, err := sqlDB.Exec("CREATE INDEX IF NOT EXISTS idx_tournaments_owner_id ON tournaments(owner_id)"); err != nil {
		return fmt.Errorf("create tournaments owner index: %w", err)
	}
	return nil
}
