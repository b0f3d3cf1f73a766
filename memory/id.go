package memory

import (
	"fmt"
	"sync"
	"time"
)

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID generates a memory record ID of the form mem_<nanoseconds>.
// IDs are strictly increasing within a process, so comparing the numeric
// part orders records by generation even when created_at timestamps collide.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixNano()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return fmt.Sprintf("mem_%d", now)
}
