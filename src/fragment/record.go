package fragment

import (
	"github.com/mosaicnetworks/netharness/src/node/rest"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MemPoolCheck identifies a submitted fragment and the node it was sent to.
type MemPoolCheck struct {
	FragmentID string
	Alias      string
}

// FragmentRecord collects the outcome of one fragment on every checked node.
type FragmentRecord struct {
	FragmentID  string
	SubmittedTo string
	outcomes    map[string]rest.FragmentStatus
}

// NewFragmentRecord ...
func NewFragmentRecord(check MemPoolCheck) *FragmentRecord {
	return &FragmentRecord{
		FragmentID:  check.FragmentID,
		SubmittedTo: check.Alias,
		outcomes:    make(map[string]rest.FragmentStatus),
	}
}

// Set records the status of the fragment on a node.
func (r *FragmentRecord) Set(alias string, status rest.FragmentStatus) {
	r.outcomes[alias] = status
}

// Outcome returns the status of the fragment on a node, NotFound if the node
// was never checked.
func (r *FragmentRecord) Outcome(alias string) rest.FragmentStatus {
	if s, ok := r.outcomes[alias]; ok {
		return s
	}
	return rest.FragmentStatus{Kind: rest.NotFound}
}

// Aliases returns the checked nodes, sorted.
func (r *FragmentRecord) Aliases() []string {
	res := maps.Keys(r.outcomes)
	slices.Sort(res)
	return res
}

// Outcomes returns a copy of the statuses per node.
func (r *FragmentRecord) Outcomes() map[string]rest.FragmentStatus {
	return maps.Clone(r.outcomes)
}

// Converged reports whether every checked node has the fragment in the same
// block.
func (r *FragmentRecord) Converged() bool {
	if len(r.outcomes) == 0 {
		return false
	}
	var first *rest.FragmentStatus
	for _, s := range r.outcomes {
		s := s
		if first == nil {
			first = &s
		}
		if !first.SameBlock(s) {
			return false
		}
	}
	return true
}
