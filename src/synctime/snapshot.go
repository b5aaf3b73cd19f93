package synctime

import (
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/netharness/src/monitor"
	"github.com/mosaicnetworks/netharness/src/node/rest"
)

// Node is what the measurer needs from a running node. *node.Handle
// implements it.
type Node interface {
	Alias() string
	Stats() (*rest.Stats, error)
}

// Reading is the state of one node in a Snapshot.
type Reading struct {
	Alias  string
	Height uint64
	Tip    string
	Err    error
}

// Snapshot is one polling round over every node.
type Snapshot struct {
	Taken    time.Time
	Readings []Reading
}

// TakeSnapshot reads the stats of every node, in order.
func TakeSnapshot(nodes []Node) Snapshot {
	s := Snapshot{
		Taken:    time.Now(),
		Readings: make([]Reading, 0, len(nodes)),
	}
	for _, n := range nodes {
		r := Reading{Alias: n.Alias()}
		stats, err := n.Stats()
		if err == nil {
			r.Height, err = stats.Stats.Height()
			r.Tip = stats.Stats.LastBlockHash
		}
		r.Err = err
		s.Readings = append(s.Readings, r)
	}
	return s
}

// Majority returns the height reported by the most nodes and how many nodes
// report it. Ties go to the greater height. tip is the hash most often seen at
// that height, the smaller one on a tie; it is only informative, nodes at the
// same height agree whatever hash they report. Unreachable nodes are ignored.
func (s Snapshot) Majority() (height uint64, tip string, count int) {
	counts := make(map[uint64]int)
	for _, r := range s.Readings {
		if r.Err != nil {
			continue
		}
		counts[r.Height]++
	}

	for h, c := range counts {
		if c > count || (c == count && h > height) {
			height, count = h, c
		}
	}
	if count == 0 {
		return 0, "", 0
	}

	tips := make(map[string]int)
	for _, r := range s.Readings {
		if r.Err == nil && r.Height == height {
			tips[r.Tip]++
		}
	}
	best := 0
	for t, c := range tips {
		if c > best || (c == best && t < tip) {
			tip, best = t, c
		}
	}
	return height, tip, count
}

// InSync reports whether every node is reachable and on the same tip, height
// and hash.
func (s Snapshot) InSync() bool {
	if len(s.Readings) == 0 {
		return true
	}
	first := s.Readings[0]
	for _, r := range s.Readings {
		if r.Err != nil || r.Height != first.Height || r.Tip != first.Tip {
			return false
		}
	}
	return true
}

// statuses converts the snapshot for monitor.Progress.
func (s Snapshot) statuses() []monitor.NodeStatus {
	height, _, _ := s.Majority()
	res := make([]monitor.NodeStatus, len(s.Readings))
	for i, r := range s.Readings {
		res[i] = monitor.NodeStatus{
			Alias:  r.Alias,
			Height: r.Height,
			Tip:    r.Tip,
			Err:    r.Err,
			Ok:     r.Err == nil && r.Height == height,
		}
	}
	return res
}

func (s Snapshot) String() string {
	var b strings.Builder
	for _, r := range s.Readings {
		if r.Err != nil {
			fmt.Fprintf(&b, "\n  %s: error: %v", r.Alias, r.Err)
			continue
		}
		fmt.Fprintf(&b, "\n  %s: height %d, tip %s", r.Alias, r.Height, r.Tip)
	}
	return b.String()
}
