package saasmigrate

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// masterKeyName identifies the bootstrap registration credential; the
// bootstrapper is idempotent by this name.
const masterKeyName = "Master Key"

// bootstrapMasterKey ensures the unlimited-use master invite key exists. It
// returns the generated code only when the key was created by this call: the
// code is surfaced to the operator exactly once and is otherwise recoverable
// only by inspecting the store.
func bootstrapMasterKey(sqlDB *sql.DB, createdBy *int64, now time.Time) (string, bool, error) {
	var existingID string
	err := sqlDB.QueryRow("SELECT id FROM invite_keys WHERE name = ?", masterKeyName).Scan(&existingID)
	if err == nil {
		return "", false, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("look up master key: %w", err)
	}

	code, err := generateInviteCode()
	if err != nil {
		return "", false, err
	}

	var creator sql.NullInt64
	if createdBy != nil {
		creator = sql.NullInt64{Int64: *createdBy, Valid: true}
	}

	if _, err := sqlDB.Exec(`
INSERT INTO invite_keys (id, code, name, type, uses_remaining, total_uses, is_active, created_by, created_at)
VALUES (?, ?, ?, 'unlimited', NULL, 0, 1, ?, ?)
`,
		uuid.NewString(),
		code,
		masterKeyName,
		creator,
		formatTime(now),
	); err != nil {
		return "", false, fmt.Errorf("insert master key: %w", err)
	}

	return code, true, nil
}

// generateInviteCode renders 128 bits of entropy as uppercase hex.
func generateInviteCode() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(raw[:])), nil
}
