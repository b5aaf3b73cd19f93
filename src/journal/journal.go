// Package journal keeps a record of what happened during a test run:
// fragments sent and their outcome on every node, node lifecycle events and
// sync measurements. The journal is copied next to the node working
// directories when a run fails.
package journal

import (
	"time"
)

// Kind classifies a Record.
type Kind string

const (
	FragmentSent    Kind = "fragment_sent"
	FragmentOutcome Kind = "fragment_outcome"
	NodeEvent       Kind = "node_event"
	SyncMeasurement Kind = "sync_measurement"
)

// Record is one journal entry. Subject is what the record is about (a
// fragment id, a measurement label), Alias the node it concerns if any.
type Record struct {
	Index   int
	Kind    Kind
	Time    time.Time
	Subject string
	Alias   string
	Outcome string
	Detail  string
}

// Journal is an append-only list of Records.
type Journal interface {
	// Append sets the Index and, when zero, the Time of r and stores it.
	Append(r Record) (Record, error)
	// Records returns every record in insertion order.
	Records() ([]Record, error)
	// Filter returns the records of the given kind.
	Filter(kind Kind) ([]Record, error)
	// Path returns the directory backing the journal, if any.
	Path() string
	Close() error
}

func filter(records []Record, kind Kind) []Record {
	var res []Record
	for _, r := range records {
		if r.Kind == kind {
			res = append(res, r)
		}
	}
	return res
}
