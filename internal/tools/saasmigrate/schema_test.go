package saasmigrate

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/bracketspace/internal/platform/storage/sqliteadd"
	_ "modernc.org/sqlite"
)

func TestEvolveIdentityStoreAddsAllColumns(t *testing.T) {
	db := openEvolvedAuthDB(t)

	columns := make([]string, 0, len(subscriptionColumns)+1)
	for _, definition := range subscriptionColumns {
		columns = append(columns, strings.Fields(definition)[0])
	}
	columns = append(columns, markerColumn)

	for _, column := range columns {
		found, err := sqliteadd.ColumnExists(db, "users", column)
		if err != nil {
			t.Fatalf("probe column %s: %v", column, err)
		}
		if !found {
			t.Fatalf("expected column %s on users", column)
		}
	}

	for _, table := range []string{"invite_keys", "invite_key_usage", "impersonation_sessions", "platform_settings"} {
		found, err := sqliteadd.TableExists(db, table)
		if err != nil {
			t.Fatalf("probe table %s: %v", table, err)
		}
		if !found {
			t.Fatalf("expected table %s", table)
		}
	}

	if count := queryInt64(t, db, "SELECT COUNT(*) FROM platform_settings"); count != 1 {
		t.Fatalf("expected singleton platform_settings row, got %d", count)
	}
}

func TestEvolveIdentityStoreIsReplaySafe(t *testing.T) {
	db := openEvolvedAuthDB(t)

	if err := evolveIdentityStore(db, time.Now().UTC(), &bytes.Buffer{}); err != nil {
		t.Fatalf("replayed evolution should be safe: %v", err)
	}
	if count := queryInt64(t, db, "SELECT COUNT(*) FROM platform_settings"); count != 1 {
		t.Fatalf("expected settings row not duplicated, got %d", count)
	}
}

func TestEvolveIdentityStoreBackfillsActivatedAt(t *testing.T) {
	db := openInMemoryDB(t)
	if _, err := db.Exec(`
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'user',
    created_at TEXT
)`); err != nil {
		t.Fatalf("create users table: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO users (username, password_hash, created_at) VALUES ('dated', ?, '2023-01-15T08:00:00Z'), ('undated', ?, NULL)",
		testHash, testHash,
	); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	runStart := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := evolveIdentityStore(db, runStart, &bytes.Buffer{}); err != nil {
		t.Fatalf("evolve identity store: %v", err)
	}

	if got := queryString(t, db, "SELECT activated_at FROM users WHERE username = 'dated'"); got != "2023-01-15T08:00:00Z" {
		t.Fatalf("expected created_at as activation source, got %q", got)
	}
	if got := queryString(t, db, "SELECT activated_at FROM users WHERE username = 'undated'"); got != "2026-08-30T12:00:00Z" {
		t.Fatalf("expected run start as activation fallback, got %q", got)
	}
}

func TestEvolveResourceStoreIsReplaySafe(t *testing.T) {
	db := openTournamentDB(t)

	var out bytes.Buffer
	if err := evolveResourceStore(db, &out); err != nil {
		t.Fatalf("replayed resource evolution should be safe: %v", err)
	}

	found, err := sqliteadd.ColumnExists(db, "tournaments", "owner_id")
	if err != nil {
		t.Fatalf("probe owner column: %v", err)
	}
	if !found {
		t.Fatal("expected owner_id column on tournaments")
	}
}

func TestEvolveResourceStoreWithoutTable(t *testing.T) {
	db := openInMemoryDB(t)

	var out bytes.Buffer
	if err := evolveResourceStore(db, &out); err != nil {
		t.Fatalf("evolution of empty store should succeed: %v", err)
	}
	if !strings.Contains(out.String(), "skipping owner column") {
		t.Fatalf("expected skip notice, got:\n%s", out.String())
	}
}

func openInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

// openTournamentDB returns an in-memory resource store with the owner column
// already added.
func openTournamentDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openInMemoryDB(t)
	if _, err := db.Exec(`
CREATE TABLE tournaments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    starts_at TEXT
)`); err != nil {
		t.Fatalf("create tournaments table: %v", err)
	}
	if err := evolveResourceStore(db, &bytes.Buffer{}); err != nil {
		t.Fatalf("evolve resource store: %v", err)
	}
	return db
}
