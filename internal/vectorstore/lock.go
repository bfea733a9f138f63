package vectorstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const lockFileName = ".codescout.lock"

// acquireLock claims exclusive write access to the store directory by
// creating a lock file. A second writer sees the existing file and fails
// with ErrStoreLocked instead of corrupting the persisted index.
func acquireLock(dir string) (string, error) {
	path := filepath.Join(dir, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return "", fmt.Errorf("%w: %s", ErrStoreLocked, path)
	}
	if err != nil {
		return "", fmt.Errorf("creating lock file: %w", err)
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// LockInfo reports whether the store directory is currently locked and,
// when it is, the PID recorded in the lock file. Diagnostics only; taking
// the lock goes through acquireLock.
func LockInfo(dir string) (pid string, locked bool) {
	data, err := os.ReadFile(filepath.Join(dir, lockFileName))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func releaseLock(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
