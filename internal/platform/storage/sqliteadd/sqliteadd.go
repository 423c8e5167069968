// Package sqliteadd provides additive schema-change helpers for SQLite
// stores: existence probes, duplicate-tolerant column addition, and scoped
// foreign-key suspension. It never drops or rewrites existing structure.
package sqliteadd

import (
	"database/sql"
	"fmt"
	"strings"
)

// TableExists reports whether the named table is present in the store.
func TableExists(sqlDB *sql.DB, table string) (bool, error) {
	var found int
	row := sqlDB.QueryRow("SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	err := row.Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("probe table %s: %w", table, err)
	}
	return true, nil
}

// ColumnExists reports whether the table carries the named column.
//
// It reads the column catalog via PRAGMA table_info, which succeeds with an
// empty result set when the table itself is absent.
func ColumnExists(sqlDB *sql.DB, table, column string) (bool, error) {
	rows, err := sqlDB.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("inspect %s table: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return false, fmt.Errorf("scan %s table info: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("read %s table info: %w", table, err)
	}
	return false, nil
}

// AddColumn applies one ALTER TABLE ... ADD COLUMN statement. It reports
// whether the column was added: a duplicate-column error counts as success
// with added = false, so partial prior runs can be replayed safely. Any other
// failure is returned to the caller.
func AddColumn(sqlDB *sql.DB, table, definition string) (bool, error) {
	_, err := sqlDB.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, definition))
	if err != nil {
		if IsAlreadyExistsError(err) {
			return false, nil
		}
		return false, fmt.Errorf("add column to %s: %w", table, err)
	}
	return true, nil
}

// IsAlreadyExistsError reports whether this error indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

// SuspendForeignKeys turns referential-integrity enforcement off for the
// connection and returns a restore function that turns it back on. Callers
// must invoke restore on every exit path; the pragma is connection-scoped, so
// the store must be opened with a single connection for the suspension to
// cover every statement of the run.
func SuspendForeignKeys(sqlDB *sql.DB) (func() error, error) {
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("suspend foreign keys: %w", err)
	}
	restore := func() error {
		if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("restore foreign keys: %w", err)
		}
		return nil
	}
	return restore, nil
}
