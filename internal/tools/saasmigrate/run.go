// Package saasmigrate performs the one-way single-tenant to multi-tenant
// migration of a bracketspace deployment.
//
// The engine backs up both store files, evolves the identity and tournament
// stores with purely additive DDL, consolidates the user roster with the
// legacy flat file, attributes ownerless tournaments to the resolved
// super-administrator, bootstraps the master invite key, and records a
// completion marker. Every stage is individually re-entrant; nothing already
// written is rolled back on failure.
package saasmigrate

import (
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/bracketspace/internal/platform/storage/sqliteadd"
)

// Usage describes the invocation surface.
const Usage = `Usage: saas-migrate [flags] [mode]

Modes:
  (none)   run the multi-tenant migration
  status   report migration status without mutating anything
  help     print this message

Flags:
  -auth-db-path         path to auth sqlite database
  -tournaments-db-path  path to tournaments sqlite database
  -legacy-users-path    path to legacy users.json
  -backup-dir           directory for pre-migration backups
`

// Run executes the saas-migrate command in the configured mode.
func Run(cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	switch cfg.Mode {
	case ModeHelp:
		fmt.Fprint(out, Usage)
		return nil
	case ModeStatus:
		return runStatus(cfg, out)
	}
	return runMigration(cfg, time.Now().UTC(), out, errOut)
}

// runMigration drives the stage sequence. Stages run strictly in order and
// the first fatal error aborts the remainder; the operator is pointed at the
// backup directory instead of any automatic rollback.
func runMigration(cfg Config, runStart time.Time, out, errOut io.Writer) error {
	backupDir, err := backupStores(
		cfg.BackupDir,
		[]string{cfg.AuthDBPath, cfg.TournamentsDBPath},
		runStart,
		out,
	)
	if err != nil {
		return err
	}

	err = migrateStores(cfg, runStart, backupDir, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "Migration failed; originals are preserved in %s\n", backupDir)
	}
	return err
}

func migrateStores(cfg Config, runStart time.Time, backupDir string, out, errOut io.Writer) error {
	authDB, err := openStore(cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	defer func() {
		if closeErr := authDB.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close auth store: %v\n", closeErr)
		}
	}()

	restoreAuthFKs, err := sqliteadd.SuspendForeignKeys(authDB)
	if err != nil {
		return err
	}
	defer func() {
		if restoreErr := restoreAuthFKs(); restoreErr != nil {
			fmt.Fprintf(errOut, "Error: %v\n", restoreErr)
		}
	}()

	tournamentsDB, err := openStore(cfg.TournamentsDBPath)
	if err != nil {
		return fmt.Errorf("open tournaments store: %w", err)
	}
	defer func() {
		if closeErr := tournamentsDB.Close(); closeErr != nil {
			fmt.Fprintf(errOut, "Error: close tournaments store: %v\n", closeErr)
		}
	}()

	restoreTournamentFKs, err := sqliteadd.SuspendForeignKeys(tournamentsDB)
	if err != nil {
		return err
	}
	defer func() {
		if restoreErr := restoreTournamentFKs(); restoreErr != nil {
			fmt.Fprintf(errOut, "Error: %v\n", restoreErr)
		}
	}()

	applied, err := sqliteadd.ColumnExists(authDB, "users", markerColumn)
	if err != nil {
		return err
	}
	if applied {
		// The guard keys on the identity store alone, so a run that died
		// between the two stores resumes here: identity evolution is
		// skipped while the resource store is still brought up to shape.
		fmt.Fprintf(out, "Identity store already migrated, skipping\n")
		if err := evolveResourceStore(tournamentsDB, out); err != nil {
			return err
		}
		fmt.Fprintf(out, "Nothing further to do\n")
		return nil
	}

	if err := evolveIdentityStore(authDB, runStart, out); err != nil {
		return err
	}
	if err := evolveResourceStore(tournamentsDB, out); err != nil {
		return err
	}

	roster, err := consolidateUsers(authDB, cfg.LegacyUsersPath, runStart, out, errOut)
	if err != nil {
		return err
	}

	var attributed int64
	var superadmin *int64
	if id, ok := resolveSuperadmin(roster); ok {
		superadmin = &id
		if err := recordSuperadmin(authDB, id, runStart); err != nil {
			return err
		}
		attributed, err = attributeTournaments(tournamentsDB, id)
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(errOut, "Warning: no admin user found; tournaments keep their null owner\n")
	}

	masterCode, created, err := bootstrapMasterKey(authDB, superadmin, runStart)
	if err != nil {
		return err
	}

	if err := recordCompletion(authDB, time.Now().UTC()); err != nil {
		return err
	}

	printReport(out, reportData{
		backupDir:   backupDir,
		rosterSize:  len(roster),
		superadmin:  superadmin,
		attributed:  attributed,
		masterCode:  masterCode,
		masterFresh: created,
	})
	return nil
}

type reportData struct {
	backupDir   string
	rosterSize  int
	superadmin  *int64
	attributed  int64
	masterCode  string
	masterFresh bool
}

// printReport is the one-shot human-readable completion summary. The master
// key code appears here exactly once when freshly generated.
func printReport(out io.Writer, data reportData) {
	fmt.Fprintf(out, "\nMigration complete\n")
	fmt.Fprintf(out, "  users in roster:        %d\n", data.rosterSize)
	if data.superadmin != nil {
		fmt.Fprintf(out, "  super-administrator id: %d\n", *data.superadmin)
	} else {
		fmt.Fprintf(out, "  super-administrator id: (none resolved)\n")
	}
	fmt.Fprintf(out, "  tournaments attributed: %d\n", data.attributed)
	fmt.Fprintf(out, "  backups:                %s\n", data.backupDir)
	if data.masterFresh {
		fmt.Fprintf(out, "\nMaster invite key: %s\n", data.masterCode)
		fmt.Fprintf(out, "Record it now; it is not shown again.\n")
	}
	fmt.Fprintf(out, "\nNext: restart the application so it picks up the new schema.\n")
}
