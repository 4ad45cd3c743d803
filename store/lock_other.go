//go:build !unix

package store

import (
	"errors"
	"os"
)

// tryLock creates lockPath exclusively. The marker file is the lock.
func tryLock(lockPath string) (func() error, error) {
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, errLocked
		}

		return nil, err
	}

	return func() error {
		return errors.Join(f.Close(), os.Remove(lockPath))
	}, nil
}
