package state

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrHeld is returned by Acquire when another process holds the lock.
var ErrHeld = errors.New("state lock held by another process")

// Lock is an advisory lock guarding the state file against overlapping
// monitor runs. It is held for the duration of a cycle.
type Lock struct {
	f *os.File
}

// Acquire takes a non-blocking exclusive flock on a sidecar lock file next
// to the state file. If another instance already holds it, ErrHeld is
// returned so the caller can bail out instead of racing the state file.
func Acquire(statePath string) (*Lock, error) {
	lockPath := statePath + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return fmt.Errorf("unlock: %w", err)
	}
	return l.f.Close()
}
