package topology

import (
	"fmt"
	"strings"
)

// LeadershipMode tells whether a node produces blocks.
type LeadershipMode uint8

const (
	// Leader nodes participate in block production.
	Leader LeadershipMode = iota
	// Passive nodes only relay and observe.
	Passive
)

// String ...
func (m LeadershipMode) String() string {
	switch m {
	case Leader:
		return "Leader"
	case Passive:
		return "Passive"
	default:
		return "Unknown"
	}
}

// ParseLeadershipMode parses the case-insensitive name of a LeadershipMode.
func ParseLeadershipMode(s string) (LeadershipMode, error) {
	switch strings.ToLower(s) {
	case "", "leader":
		return Leader, nil
	case "passive":
		return Passive, nil
	default:
		return Leader, fmt.Errorf("unknown leadership mode %q", s)
	}
}

// PersistenceMode tells whether a node's chain storage survives a restart.
type PersistenceMode uint8

const (
	// InMemory nodes keep their chain in memory only.
	InMemory PersistenceMode = iota
	// Persistent nodes store their chain in their working directory.
	Persistent
)

// String ...
func (m PersistenceMode) String() string {
	switch m {
	case InMemory:
		return "InMemory"
	case Persistent:
		return "Persistent"
	default:
		return "Unknown"
	}
}

// ParsePersistenceMode parses the case-insensitive name of a PersistenceMode.
func ParsePersistenceMode(s string) (PersistenceMode, error) {
	switch strings.ToLower(s) {
	case "", "inmemory", "in-memory", "in_memory":
		return InMemory, nil
	case "persistent":
		return Persistent, nil
	default:
		return InMemory, fmt.Errorf("unknown persistence mode %q", s)
	}
}

// NodeDescriptor declares one node of the topology. It is immutable once the
// topology is built.
type NodeDescriptor struct {
	Alias        string
	TrustedPeers []string
	Leadership   LeadershipMode
	Persistence  PersistenceMode
}

// NewNode starts the declaration of a leader, in-memory node with no trusted
// peers.
func NewNode(alias string) NodeDescriptor {
	return NodeDescriptor{Alias: alias}
}

// WithTrustedPeer returns a copy of the descriptor trusting one more peer.
func (d NodeDescriptor) WithTrustedPeer(alias string) NodeDescriptor {
	peers := make([]string, len(d.TrustedPeers), len(d.TrustedPeers)+1)
	copy(peers, d.TrustedPeers)
	d.TrustedPeers = append(peers, alias)
	return d
}

// Passive returns a copy of the descriptor with Passive leadership.
func (d NodeDescriptor) Passive() NodeDescriptor {
	d.Leadership = Passive
	return d
}

// Leader returns a copy of the descriptor with Leader leadership.
func (d NodeDescriptor) Leader() NodeDescriptor {
	d.Leadership = Leader
	return d
}

// Persistent returns a copy of the descriptor with Persistent storage.
func (d NodeDescriptor) Persistent() NodeDescriptor {
	d.Persistence = Persistent
	return d
}

// InMemory returns a copy of the descriptor with InMemory storage.
func (d NodeDescriptor) InMemory() NodeDescriptor {
	d.Persistence = InMemory
	return d
}

// IsLeader ...
func (d NodeDescriptor) IsLeader() bool {
	return d.Leadership == Leader
}
