package saasmigrate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupStores copies every present store file byte-for-byte into a
// run-scoped backup directory and returns its path. A missing store file
// means no prior state and is reported, not failed. No mutation stage runs
// before this returns.
func backupStores(backupRoot string, paths []string, now time.Time, out io.Writer) (string, error) {
	dir := filepath.Join(backupRoot, "saas-migration-"+now.UTC().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(out, "No existing file at %s, skipping backup\n", path)
				continue
			}
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
		target := filepath.Join(dir, filepath.Base(path))
		if err := copyFile(path, target); err != nil {
			return "", fmt.Errorf("back up %s: %w", path, err)
		}
		fmt.Fprintf(out, "Backed up %s to %s\n", path, target)
	}

	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	output, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(output, in); err != nil {
		_ = output.Close()
		return err
	}
	return output.Close()
}
