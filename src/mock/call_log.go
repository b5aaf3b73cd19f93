package mock

import (
	"sync"
	"time"
)

// CallLogEntry records one inbound call.
type CallLogEntry struct {
	Method    MethodType
	Timestamp time.Time
	Ordinal   int
}

// CallLog is an append-only list of calls, safe for concurrent use.
type CallLog struct {
	sync.Mutex
	entries []CallLogEntry
}

// Append records a call and returns its entry.
func (l *CallLog) Append(m MethodType) CallLogEntry {
	l.Lock()
	defer l.Unlock()

	e := CallLogEntry{
		Method:    m,
		Timestamp: time.Now(),
		Ordinal:   len(l.entries),
	}
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the recorded calls in arrival order.
func (l *CallLog) Entries() []CallLogEntry {
	l.Lock()
	defer l.Unlock()

	res := make([]CallLogEntry, len(l.entries))
	copy(res, l.entries)
	return res
}

// Len returns the number of recorded calls.
func (l *CallLog) Len() int {
	l.Lock()
	defer l.Unlock()
	return len(l.entries)
}
