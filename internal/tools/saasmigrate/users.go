package saasmigrate

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// rosterEntry is one post-consolidation identity, in store order.
type rosterEntry struct {
	ID       int64
	Username string
	Role     string
}

type legacyUserFile struct {
	Users []legacyUser `json:"users"`
}

type legacyUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Email    string `json:"email"`
}

// consolidateUsers merges the store roster with the legacy flat file. Store
// rows are authoritative: a flat-file identity is inserted only when its
// username is absent from the store, and the flat file itself is never
// written. An unreadable or malformed file degrades to a store-only roster.
func consolidateUsers(sqlDB *sql.DB, legacyPath string, now time.Time, out, errOut io.Writer) ([]rosterEntry, error) {
	roster, err := loadStoreRoster(sqlDB)
	if err != nil {
		return nil, err
	}

	byUsername := make(map[string]bool, len(roster))
	for _, entry := range roster {
		byUsername[entry.Username] = true
	}

	legacy := loadLegacyUsers(legacyPath, errOut)

	inserted := 0
	for _, candidate := range legacy {
		username := strings.TrimSpace(candidate.Username)
		if username == "" || byUsername[username] {
			continue
		}

		hash, err := passwordHash(candidate.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", username, err)
		}

		role := candidate.Role
		if role != "admin" {
			role = "user"
		}

		result, err := sqlDB.Exec(`
INSERT INTO users (username, password_hash, role, is_active, activated_at, created_at)
VALUES (?, ?, ?, 1, ?, ?)
`,
			username,
			hash,
			role,
			formatTime(now),
			formatTime(now),
		)
		if err != nil {
			return nil, fmt.Errorf("insert legacy user %s: %w", username, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("read id for legacy user %s: %w", username, err)
		}

		roster = append(roster, rosterEntry{ID: id, Username: username, Role: role})
		byUsername[username] = true
		inserted++
	}

	fmt.Fprintf(out, "Consolidated %d users (%d imported from legacy file)\n", len(roster), inserted)
	return roster, nil
}

func loadStoreRoster(sqlDB *sql.DB) ([]rosterEntry, error) {
	rows, err := sqlDB.Query("SELECT id, username, role FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var roster []rosterEntry
	for rows.Next() {
		var entry rosterEntry
		if err := rows.Scan(&entry.ID, &entry.Username, &entry.Role); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		roster = append(roster, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read user rows: %w", err)
	}
	return roster, nil
}

// loadLegacyUsers reads the flat file best-effort. Absence or corruption is a
// warning, not a failure: consolidation proceeds with the store roster alone.
func loadLegacyUsers(path string, errOut io.Writer) []legacyUser {
	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(errOut, "Warning: read legacy users file %s: %v\n", path, err)
		}
		return nil
	}

	var file legacyUserFile
	if err := json.Unmarshal(content, &file); err != nil {
		fmt.Fprintf(errOut, "Warning: parse legacy users file %s: %v\n", path, err)
		return nil
	}
	return file.Users
}

// passwordHash reuses an existing bcrypt digest and hashes anything else.
// Older deployments stored digests in the flat file; development fixtures
// stored plaintext.
func passwordHash(password string) (string, error) {
	if strings.HasPrefix(password, "$2") {
		return password, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
