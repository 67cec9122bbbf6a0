// Package ids generates request and audit identifiers. ULIDs are used
// instead of UUIDs here because they sort by creation time, which keeps
// log and audit trails grep-friendly.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new lexicographically sortable identifier.
func New() string {
	mu.Lock()
	defer mu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Timestamp extracts the creation time embedded in an identifier
// produced by New. Returns the zero time for malformed input.
func Timestamp(id string) time.Time {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(parsed.Time())
}
