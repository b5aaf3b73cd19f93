package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NodeState is the state reported by a node on /status and /stats.
type NodeState string

// States reported by the node while it starts.
const (
	StartingRestServer NodeState = "StartingRestServer"
	PreparingStorage   NodeState = "PreparingStorage"
	PreparingBlock0    NodeState = "PreparingBlock0"
	Bootstrapping      NodeState = "Bootstrapping"
	StartingWorkers    NodeState = "StartingWorkers"
	Running            NodeState = "Running"
)

type statusResponse struct {
	State NodeState `json:"state"`
}

// Stats is the body of /stats.
type Stats struct {
	State NodeState `json:"state"`
	Stats NodeStats `json:"stats"`
}

// IsRunning ...
func (s *Stats) IsRunning() bool {
	return s.State == Running
}

// NodeStats holds the counters of a running node. Heights are reported as
// strings.
type NodeStats struct {
	LastBlockHeight string `json:"lastBlockHeight"`
	LastBlockHash   string `json:"lastBlockHash"`
	LastBlockDate   string `json:"lastBlockDate,omitempty"`
	TxRecvCnt       uint64 `json:"txRecvCnt"`
	BlockRecvCnt    uint64 `json:"blockRecvCnt"`
	Uptime          uint64 `json:"uptime"`
}

// Height parses LastBlockHeight.
func (s NodeStats) Height() (uint64, error) {
	if s.LastBlockHeight == "" {
		return 0, nil
	}
	return strconv.ParseUint(s.LastBlockHeight, 10, 64)
}

// StatusKind enumerates the possible outcomes of a fragment on one node.
type StatusKind uint8

const (
	// NotFound means the fragment is absent from the node's logs. Nodes never
	// report it; the harness uses it for fragments it could not find.
	NotFound StatusKind = iota
	// Pending fragments wait in the mempool.
	Pending
	// Rejected fragments were refused by the node.
	Rejected
	// InABlock fragments are part of the chain.
	InABlock
)

// String ...
func (k StatusKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Pending:
		return "Pending"
	case Rejected:
		return "Rejected"
	case InABlock:
		return "InABlock"
	default:
		return "Unknown"
	}
}

// FragmentStatus is the status of a fragment in a node's fragment log. On the
// wire it is one of
//
//	"Pending"
//	{"Rejected":{"reason":"..."}}
//	{"InABlock":{"date":"<epoch>.<slot>","block":"<hash>"}}
type FragmentStatus struct {
	Kind   StatusKind
	Reason string
	Epoch  uint32
	Slot   uint32
	Block  string
}

// IsInBlock ...
func (s FragmentStatus) IsInBlock() bool {
	return s.Kind == InABlock
}

// SameBlock reports whether two statuses point at the same block.
func (s FragmentStatus) SameBlock(o FragmentStatus) bool {
	return s.Kind == InABlock && o.Kind == InABlock &&
		s.Epoch == o.Epoch && s.Slot == o.Slot && s.Block == o.Block
}

// String ...
func (s FragmentStatus) String() string {
	switch s.Kind {
	case Rejected:
		return fmt.Sprintf("Rejected(%s)", s.Reason)
	case InABlock:
		return fmt.Sprintf("InABlock(%d.%d, %s)", s.Epoch, s.Slot, s.Block)
	default:
		return s.Kind.String()
	}
}

type rejectedBody struct {
	Reason string `json:"reason"`
}

type inABlockBody struct {
	Date  string `json:"date"`
	Block string `json:"block"`
}

// MarshalJSON implements json.Marshaler.
func (s FragmentStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Pending:
		return json.Marshal("Pending")
	case Rejected:
		return json.Marshal(map[string]rejectedBody{"Rejected": {Reason: s.Reason}})
	case InABlock:
		return json.Marshal(map[string]inABlockBody{"InABlock": {
			Date:  fmt.Sprintf("%d.%d", s.Epoch, s.Slot),
			Block: s.Block,
		}})
	default:
		return nil, fmt.Errorf("cannot marshal fragment status %s", s.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *FragmentStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		if name != "Pending" {
			return fmt.Errorf("unknown fragment status %q", name)
		}
		*s = FragmentStatus{Kind: Pending}
		return nil
	}

	var obj struct {
		Rejected *rejectedBody `json:"Rejected"`
		InABlock *inABlockBody `json:"InABlock"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	switch {
	case obj.Rejected != nil:
		*s = FragmentStatus{Kind: Rejected, Reason: obj.Rejected.Reason}
	case obj.InABlock != nil:
		epoch, slot, err := ParseBlockDate(obj.InABlock.Date)
		if err != nil {
			return err
		}
		*s = FragmentStatus{
			Kind:  InABlock,
			Epoch: epoch,
			Slot:  slot,
			Block: obj.InABlock.Block,
		}
	default:
		return fmt.Errorf("unknown fragment status %s", string(data))
	}
	return nil
}

// ParseBlockDate parses an "<epoch>.<slot>" block date.
func ParseBlockDate(date string) (epoch, slot uint32, err error) {
	parts := strings.Split(date, ".")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed block date %q", date)
	}
	e, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed block date %q: %w", date, err)
	}
	sl, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed block date %q: %w", date, err)
	}
	return uint32(e), uint32(sl), nil
}

// FragmentLog is one entry of /fragment/logs.
type FragmentLog struct {
	FragmentID    string         `json:"fragment_id"`
	ReceivedFrom  string         `json:"received_from"`
	ReceivedAt    time.Time      `json:"received_at"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
	Status        FragmentStatus `json:"status"`
}

// BatchRequest is the body of POST /fragment/batch.
type BatchRequest struct {
	FailFast  bool              `json:"fail_fast"`
	Fragments []json.RawMessage `json:"fragments"`
}

// RejectedFragment describes a refused fragment in a BatchSummary.
type RejectedFragment struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchSummary is the body returned by POST /fragment/batch.
type BatchSummary struct {
	Accepted []string           `json:"accepted"`
	Rejected []RejectedFragment `json:"rejected"`
}

// Account is the body of /account/{address}.
type Account struct {
	Value   uint64 `json:"value"`
	Counter uint32 `json:"counter"`
}
