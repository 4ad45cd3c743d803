package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// LockTimeout bounds how long WithExclusiveAccess waits for a lock. Critical
// sections are a single append or rewrite, so waiting longer than this
// almost always means a stuck process.
var LockTimeout = 10 * time.Second

// lockPollInterval is the pause between two non-blocking lock attempts.
const lockPollInterval = 5 * time.Millisecond

// errLocked is returned by tryLock when another holder owns the lock.
var errLocked = errors.New("file is locked")

// WithExclusiveAccess runs fn while holding an exclusive, process-external
// lock keyed to path. The lock lives in a sibling "<path>.lock" file which is
// removed once the lock is released, on every exit path of fn.
//
// Parameters:
// - ctx: bounds the wait for the lock together with LockTimeout
// - path: the shared file being protected (it does not need to exist)
// - fn: the read-modify-write critical section
//
// Usage example:
//
//	err := WithExclusiveAccess(ctx, "observations.csv", func() error {
//	    rows, err := read()
//	    ...
//	    return write(append(rows, row))
//	})
func WithExclusiveAccess(ctx context.Context, path string, fn func() error) (err error) {
	lockPath := path + ".lock"

	ctx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(lockPollInterval), 1)

	for {
		release, lockErr := tryLock(lockPath)
		if lockErr == nil {
			defer func() {
				if releaseErr := release(); releaseErr != nil && err == nil {
					err = fmt.Errorf("releasing lock %s: %w", lockPath, releaseErr)
				}
			}()

			return fn()
		}

		if !errors.Is(lockErr, errLocked) {
			return fmt.Errorf("locking %s: %w", lockPath, lockErr)
		}

		if waitErr := limiter.Wait(ctx); waitErr != nil {
			return fmt.Errorf("%w: %s: %w", ErrLockTimeout, lockPath, waitErr)
		}
	}
}
