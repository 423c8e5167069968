package saasmigrate

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/louisbranch/bracketspace/internal/platform/storage/sqliteadd"
)

// Status reports the four independent migration signals. The signals are
// deliberately separate: a partial prior run can leave any prefix of them
// set.
type Status struct {
	MarkerColumn     bool
	InviteKeysTable  bool
	PlatformSettings bool
	CompletionMarker bool
}

// Applied reports whether the idempotency guard would treat the identity
// store as already migrated.
func (s Status) Applied() bool {
	return s.MarkerColumn
}

// probeStatus inspects the identity store without mutating it.
func probeStatus(sqlDB *sql.DB) (Status, error) {
	var status Status
	var err error

	status.MarkerColumn, err = sqliteadd.ColumnExists(sqlDB, "users", markerColumn)
	if err != nil {
		return Status{}, err
	}
	status.InviteKeysTable, err = sqliteadd.TableExists(sqlDB, "invite_keys")
	if err != nil {
		return Status{}, err
	}
	status.PlatformSettings, err = sqliteadd.TableExists(sqlDB, "platform_settings")
	if err != nil {
		return Status{}, err
	}

	settingsPresent, err := sqliteadd.TableExists(sqlDB, "settings")
	if err != nil {
		return Status{}, err
	}
	if settingsPresent {
		var value string
		err := sqlDB.QueryRow("SELECT value FROM settings WHERE key = ?", completionKey).Scan(&value)
		switch err {
		case nil:
			status.CompletionMarker = true
		case sql.ErrNoRows:
		default:
			return Status{}, fmt.Errorf("probe completion marker: %w", err)
		}
	}

	return status, nil
}

// runStatus opens the identity store, probes the composite status, and
// prints one line per signal. It performs no mutation and takes no backup.
func runStatus(cfg Config, out io.Writer) error {
	authDB, err := openStore(cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer func() {
		_ = authDB.Close()
	}()

	status, err := probeStatus(authDB)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Migration status for %s:\n", cfg.AuthDBPath)
	fmt.Fprintf(out, "  subscription columns:  %s\n", statusWord(status.MarkerColumn))
	fmt.Fprintf(out, "  invite_keys table:     %s\n", statusWord(status.InviteKeysTable))
	fmt.Fprintf(out, "  platform_settings:     %s\n", statusWord(status.PlatformSettings))
	fmt.Fprintf(out, "  completion marker:     %s\n", statusWord(status.CompletionMarker))
	if status.Applied() {
		fmt.Fprintf(out, "Migration has been applied\n")
	} else {
		fmt.Fprintf(out, "Migration has not been applied\n")
	}
	return nil
}

func statusWord(present bool) string {
	if present {
		return "present"
	}
	return "missing"
}
