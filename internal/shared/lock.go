package shared

import (
	"fmt"

	"github.com/gofrs/flock"
)

// InstanceLock is an advisory file lock held by a long-running command.
type InstanceLock struct {
	lock *flock.Flock
}

// LockPath returns the lock file used for name next to the database at dbPath.
// The in-memory database has no lock file.
func LockPath(dbPath, name string) string {
	if dbPath == "" || dbPath == MemoryDatabase {
		return ""
	}
	return dbPath + "." + name + ".lock"
}

// AcquireLock takes the lock at path without waiting. An empty path returns a no-op lock.
//
// Returns [ErrAlreadyRunning] when another process holds it.
func AcquireLock(path string) (*InstanceLock, error) {
	if path == "" {
		return &InstanceLock{}, nil
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is locked", ErrAlreadyRunning, path)
	}
	return &InstanceLock{lock: lock}, nil
}

// Release unlocks the file. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
