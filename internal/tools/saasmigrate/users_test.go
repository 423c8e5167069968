package saasmigrate

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashKeepsExistingDigest(t *testing.T) {
	hash, err := passwordHash(testHash)
	if err != nil {
		t.Fatalf("hash existing digest: %v", err)
	}
	if hash != testHash {
		t.Fatal("expected existing bcrypt digest to pass through unchanged")
	}
}

func TestPasswordHashHashesPlaintext(t *testing.T) {
	hash, err := passwordHash("hunter2")
	if err != nil {
		t.Fatalf("hash plaintext: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")); err != nil {
		t.Fatalf("expected verifiable bcrypt digest: %v", err)
	}
}

func TestConsolidateUsersSkipsBlankAndDuplicateNames(t *testing.T) {
	db := openEvolvedAuthDB(t)
	if _, err := db.Exec("INSERT INTO users (username, password_hash, role) VALUES ('alice', ?, 'user')", testHash); err != nil {
		t.Fatalf("seed alice: %v", err)
	}

	dir := t.TempDir()
	legacyPath := dir + "/users.json"
	writeLegacyFile(t, legacyPath, `{"users": [
		{"username": "alice", "password": "other"},
		{"username": "  ", "password": "blank"},
		{"username": "dave", "password": "secret", "role": "moderator"}
	]}`)

	roster, err := consolidateUsers(db, legacyPath, time.Now().UTC(), &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("consolidate users: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected roster of 2 (alice, dave), got %d", len(roster))
	}

	// Unknown roles collapse to user; the role constraint knows nothing else.
	if role := queryString(t, db, "SELECT role FROM users WHERE username = 'dave'"); role != "user" {
		t.Fatalf("expected moderator collapsed to user, got %q", role)
	}
}

func TestConsolidateUsersWithMissingFile(t *testing.T) {
	db := openEvolvedAuthDB(t)
	if _, err := db.Exec("INSERT INTO users (username, password_hash, role) VALUES ('alice', ?, 'user')", testHash); err != nil {
		t.Fatalf("seed alice: %v", err)
	}

	var errOut bytes.Buffer
	roster, err := consolidateUsers(db, t.TempDir()+"/absent.json", time.Now().UTC(), &bytes.Buffer{}, &errOut)
	if err != nil {
		t.Fatalf("consolidate without file: %v", err)
	}
	if len(roster) != 1 {
		t.Fatalf("expected store-only roster, got %d entries", len(roster))
	}
	if strings.Contains(errOut.String(), "Warning") {
		t.Fatalf("expected no warning for a merely absent file, got:\n%s", errOut.String())
	}
}
