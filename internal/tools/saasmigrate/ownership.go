package saasmigrate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/louisbranch/bracketspace/internal/platform/storage/sqliteadd"
)

// superadminFlagKey is where the resolved super-administrator id lives inside
// platform_settings.feature_flags. The users role constraint cannot be
// widened additively, so elevated authority is an application-level pointer
// rather than a new role value.
const superadminFlagKey = "superadmin_user_id"

// bootstrapUsername is recognized as the super-administrator even when its
// row predates role support.
const bootstrapUsername = "admin"

// resolveSuperadmin returns the first roster identity with the admin role or
// the bootstrap username. The bool reports whether one was found.
func resolveSuperadmin(roster []rosterEntry) (int64, bool) {
	for _, entry := range roster {
		if entry.Role == "admin" || entry.Username == bootstrapUsername {
			return entry.ID, true
		}
	}
	return 0, false
}

// recordSuperadmin merges the resolved id into feature_flags without
// disturbing existing keys.
func recordSuperadmin(sqlDB *sql.DB, superadminID int64, now time.Time) error {
	var raw string
	if err := sqlDB.QueryRow("SELECT feature_flags FROM platform_settings WHERE id = 1").Scan(&raw); err != nil {
		return fmt.Errorf("load feature flags: %w", err)
	}

	flags := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &flags); err != nil {
			return fmt.Errorf("parse feature flags: %w", err)
		}
	}
	flags[superadminFlagKey] = superadminID

	merged, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("encode feature flags: %w", err)
	}

	if _, err := sqlDB.Exec(
		"UPDATE platform_settings SET feature_flags = ?, updated_at = ? WHERE id = 1",
		string(merged),
		formatTime(now),
	); err != nil {
		return fmt.Errorf("record superadmin pointer: %w", err)
	}
	return nil
}

// attributeTournaments assigns every ownerless tournament to the resolved
// super-administrator in one bulk update and returns the affected row count.
func attributeTournaments(sqlDB *sql.DB, ownerID int64) (int64, error) {
	present, err := sqliteadd.TableExists(sqlDB, "tournaments")
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, nil
	}

	result, err := sqlDB.Exec("UPDATE tournaments SET owner_id = ? WHERE owner_id IS NULL", ownerID)
	if err != nil {
		return 0, fmt.Errorf("attribute tournaments: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count attributed tournaments: %w", err)
	}
	return count, nil
}
