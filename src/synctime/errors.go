package synctime

import (
	"fmt"
	"time"
)

// SyncTimeoutExceededError is returned when the nodes did not converge in
// time. Achieved is the last snapshot taken.
type SyncTimeoutExceededError struct {
	Label    string
	Cap      time.Duration
	Required int
	Achieved Snapshot
}

func (e *SyncTimeoutExceededError) Error() string {
	_, _, count := e.Achieved.Majority()
	return fmt.Sprintf("%s: nodes did not sync within %s (%d of %d required nodes agree):%s",
		e.Label, e.Cap, count, e.Required, e.Achieved)
}

// NotInSyncError is returned by AssertAreInSync.
type NotInSyncError struct {
	Snapshot Snapshot
}

func (e *NotInSyncError) Error() string {
	return fmt.Sprintf("nodes are not in sync:%s", e.Snapshot)
}
