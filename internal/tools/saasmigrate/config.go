package saasmigrate

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/louisbranch/bracketspace/internal/platform/config"
)

// Mode selects which of the tool's entry behaviors to run.
type Mode string

const (
	// ModeRun performs the full migration.
	ModeRun Mode = "run"
	// ModeStatus reports the composite migration status without mutating
	// either store.
	ModeStatus Mode = "status"
	// ModeHelp prints usage.
	ModeHelp Mode = "help"
)

// Config holds saas-migrate command configuration.
type Config struct {
	AuthDBPath        string `env:"BRACKETSPACE_AUTH_DB_PATH"`
	TournamentsDBPath string `env:"BRACKETSPACE_TOURNAMENTS_DB_PATH"`
	LegacyUsersPath   string `env:"BRACKETSPACE_LEGACY_USERS_PATH"`
	BackupDir         string `env:"BRACKETSPACE_BACKUP_DIR"`
	Mode              Mode
}

// ParseConfig parses environment variables, flags, and the optional mode
// argument into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.AuthDBPath == "" {
		cfg.AuthDBPath = filepath.Join("data", "auth.db")
	}
	if cfg.TournamentsDBPath == "" {
		cfg.TournamentsDBPath = filepath.Join("data", "tournaments.db")
	}
	if cfg.LegacyUsersPath == "" {
		cfg.LegacyUsersPath = filepath.Join("data", "users.json")
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join("data", "backups")
	}

	fs.StringVar(&cfg.AuthDBPath, "auth-db-path", cfg.AuthDBPath, "path to auth sqlite database (default: BRACKETSPACE_AUTH_DB_PATH or data/auth.db)")
	fs.StringVar(&cfg.TournamentsDBPath, "tournaments-db-path", cfg.TournamentsDBPath, "path to tournaments sqlite database (default: BRACKETSPACE_TOURNAMENTS_DB_PATH or data/tournaments.db)")
	fs.StringVar(&cfg.LegacyUsersPath, "legacy-users-path", cfg.LegacyUsersPath, "path to legacy users.json (default: BRACKETSPACE_LEGACY_USERS_PATH or data/users.json)")
	fs.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "directory for pre-migration backups (default: BRACKETSPACE_BACKUP_DIR or data/backups)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Mode = ModeRun
	rest := fs.Args()
	if len(rest) > 1 {
		return Config{}, fmt.Errorf("expected at most one mode argument, got %d", len(rest))
	}
	if len(rest) == 1 {
		switch rest[0] {
		case "status":
			cfg.Mode = ModeStatus
		case "help":
			cfg.Mode = ModeHelp
		default:
			return Config{}, fmt.Errorf("unknown mode %q (expected status or help)", rest[0])
		}
	}
	return cfg, nil
}
