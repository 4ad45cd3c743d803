//go:build unix

package store

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock takes a non-blocking flock(2) on lockPath.
//
// The lock file is unlinked by its holder on release, so a waiter may end up
// locking an inode that is no longer reachable by name. After acquiring the
// lock the path is therefore re-checked to still point at the locked inode.
func tryLock(lockPath string) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, errLocked
		}

		return nil, err
	}

	held, err := f.Stat()
	if err != nil {
		unlockAndClose(f)

		return nil, err
	}

	current, err := os.Stat(lockPath)
	if err != nil || !os.SameFile(held, current) {
		unlockAndClose(f)

		return nil, errLocked
	}

	return func() error {
		// Unlink while still holding the lock so nobody else's file is removed.
		removeErr := os.Remove(lockPath)
		if errors.Is(removeErr, os.ErrNotExist) {
			removeErr = nil
		}

		return errors.Join(removeErr, unlockAndClose(f))
	}, nil
}

func unlockAndClose(f *os.File) error {
	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return errors.Join(unlockErr, f.Close())
}
