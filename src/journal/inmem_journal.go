package journal

import (
	"sync"
	"time"
)

// InmemJournal keeps records in memory.
type InmemJournal struct {
	sync.Mutex
	records []Record
}

// NewInmemJournal ...
func NewInmemJournal() *InmemJournal {
	return &InmemJournal{}
}

// Append implements the Journal interface.
func (j *InmemJournal) Append(r Record) (Record, error) {
	j.Lock()
	defer j.Unlock()

	r.Index = len(j.records)
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	j.records = append(j.records, r)
	return r, nil
}

// Records implements the Journal interface.
func (j *InmemJournal) Records() ([]Record, error) {
	j.Lock()
	defer j.Unlock()

	res := make([]Record, len(j.records))
	copy(res, j.records)
	return res, nil
}

// Filter implements the Journal interface.
func (j *InmemJournal) Filter(kind Kind) ([]Record, error) {
	records, _ := j.Records()
	return filter(records, kind), nil
}

// Path implements the Journal interface. An InmemJournal has no directory.
func (j *InmemJournal) Path() string {
	return ""
}

// Close implements the Journal interface.
func (j *InmemJournal) Close() error {
	return nil
}
