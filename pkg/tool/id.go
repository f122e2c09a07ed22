package tool

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IDGenerator issues record identifiers. Services take one so tests can pin ids.
type IDGenerator func() string

// SequentialIDs returns a generator yielding prefix-1, prefix-2, ...
// It is safe for concurrent use.
func SequentialIDs(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}

// Clock returns the current time. Services take one so tests can pin dates.
type Clock func() time.Time

// FixedClock always returns t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }
