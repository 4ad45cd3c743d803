package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// idLayout sorts lexicographically in time order. The microseconds follow
// as a zero-padded "_ffffff" field.
const idLayout = "2006-01-02_15-04-05"

var idClock struct {
	sync.Mutex
	last time.Time
}

// NewID returns a unique, lexicographically time-ordered identifier such as
// "2024-03-01_12-30-05_123456_9f86d081".
//
// The timestamp is UTC with microsecond resolution and never repeats within
// a process; the random suffix separates ids minted by concurrent processes
// in the same microsecond.
func NewID() string {
	now := time.Now().UTC().Truncate(time.Microsecond)

	idClock.Lock()
	if !now.After(idClock.last) {
		now = idClock.last.Add(time.Microsecond)
	}
	idClock.last = now
	idClock.Unlock()

	entropy := strings.ReplaceAll(uuid.NewString(), "-", "")

	return fmt.Sprintf("%s_%06d_%s", now.Format(idLayout), now.Nanosecond()/int(time.Microsecond), entropy[:8])
}
