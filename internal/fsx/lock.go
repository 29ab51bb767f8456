package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	apperrors "github.com/Gojibodev/keklauncher/internal/errors"
)

const (
	LockFileName   = ".kek.lock"
	lockRetry      = 25 * time.Millisecond
	lockStaleAfter = 30 * time.Minute
)

// LockDir takes an exclusive lock on dir, waiting up to wait for a holder to
// release it. The returned func releases the lock.
func LockDir(dir string, wait time.Duration) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lockPath := filepath.Join(dir, LockFileName)
	start := time.Now()
	for {
		// #nosec G304 -- lock path is derived from the target directory.
		lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = lockFile.WriteString(strconv.Itoa(os.Getpid()))
			_ = lockFile.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !isLockContention(err, lockPath) {
			return nil, fmt.Errorf("acquire directory lock: %w", err)
		}
		if shouldRecoverStaleLock(lockPath, time.Now().UTC()) {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Since(start) >= wait {
			return nil, apperrors.Kind(apperrors.ErrStateContention, apperrors.CategoryStateContention, "%s", dir)
		}
		time.Sleep(lockRetry)
	}
}

// WithDirLock runs fn while holding the lock on dir.
func WithDirLock(dir string, wait time.Duration, fn func() error) error {
	release, err := LockDir(dir, wait)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func isLockContention(acquireErr error, lockPath string) bool {
	if os.IsExist(acquireErr) {
		return true
	}
	if !os.IsPermission(acquireErr) {
		return false
	}
	_, statErr := os.Stat(lockPath)
	return statErr == nil
}

func shouldRecoverStaleLock(lockPath string, now time.Time) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	return now.Sub(info.ModTime().UTC()) > lockStaleAfter
}
