// Package nodetest provides a scripted stand-in for the REST API of a node,
// used to test the harness without the node binary.
//
// Several FakeNodes may share a Chain, in which case they agree on the tip,
// the ledger and the fate of every fragment, like a converged network.
package nodetest

import (
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/netharness/src/crypto"
	"github.com/mosaicnetworks/netharness/src/node/rest"
)

const defaultSlotsPerEpoch = 10

type entry struct {
	log        rest.FragmentLog
	receivedBy string
	stalled    bool
}

// Chain is the shared ledger and block history of a group of FakeNodes.
type Chain struct {
	// Strict enables counter and balance checks on submitted fragments.
	Strict bool

	mu            sync.Mutex
	height        uint64
	epoch         uint32
	slot          uint32
	slotsPerEpoch uint32
	tip           string
	accounts      map[string]*rest.Account
	entries       map[string]*entry
	pending       []string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewChain returns a chain at its genesis block.
func NewChain() *Chain {
	return &Chain{
		slotsPerEpoch: defaultSlotsPerEpoch,
		tip:           crypto.SHA256Hex([]byte("genesis")),
		accounts:      make(map[string]*rest.Account),
		entries:       make(map[string]*entry),
	}
}

// Fund credits an account.
func (c *Chain) Fund(address string, value uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.account(address).Value += value
}

// Account returns a copy of an account.
func (c *Chain) Account(address string) rest.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.account(address)
}

func (c *Chain) account(address string) *rest.Account {
	a, ok := c.accounts[address]
	if !ok {
		a = &rest.Account{}
		c.accounts[address] = a
	}
	return a
}

// Tip returns the current height and tip hash.
func (c *Chain) Tip() (uint64, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, c.tip
}

// Status returns the status of a fragment, or NotFound.
func (c *Chain) Status(id string) rest.FragmentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return rest.FragmentStatus{Kind: rest.NotFound}
	}
	return e.log.Status
}

// SetStatus overrides the status of a fragment, creating the log entry if
// needed.
func (c *Chain) SetStatus(id string, status rest.FragmentStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{log: rest.FragmentLog{
			FragmentID:   id,
			ReceivedFrom: "Network",
			ReceivedAt:   now,
		}}
		c.entries[id] = e
	}
	e.log.Status = status
	e.log.LastUpdatedAt = now
}

// ProduceBlock includes every pending, non-stalled fragment in a new block and
// returns the hash of that block.
func (c *Chain) ProduceBlock() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.slot++
	if c.slot == c.slotsPerEpoch {
		c.epoch++
		c.slot = 0
	}
	c.height++
	c.tip = crypto.SHA256Hex([]byte(fmt.Sprintf("%s/%d", c.tip, c.height)))

	now := time.Now().UTC()
	remaining := c.pending[:0]
	for _, id := range c.pending {
		e := c.entries[id]
		if e.stalled {
			remaining = append(remaining, id)
			continue
		}
		e.log.Status = rest.FragmentStatus{
			Kind:  rest.InABlock,
			Epoch: c.epoch,
			Slot:  c.slot,
			Block: c.tip,
		}
		e.log.LastUpdatedAt = now
	}
	c.pending = remaining

	return c.tip
}

// Start produces a block every interval until Stop is called.
func (c *Chain) Start(interval time.Duration) {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.ProduceBlock()
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop halts block production started by Start.
func (c *Chain) Stop() {
	c.mu.Lock()
	stopCh := c.stopCh
	c.stopCh = nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		c.wg.Wait()
	}
}

// submit records a fragment received by a node and returns its status.
func (c *Chain) submit(f fragmentBody, by string, policy FragmentPolicy, reason string) rest.FragmentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[f.ID]; ok {
		return e.log.Status
	}

	if policy == Drop {
		return rest.FragmentStatus{Kind: rest.NotFound}
	}

	now := time.Now().UTC()
	e := &entry{
		log: rest.FragmentLog{
			FragmentID:    f.ID,
			ReceivedFrom:  "Rest",
			ReceivedAt:    now,
			LastUpdatedAt: now,
		},
		receivedBy: by,
		stalled:    policy == Stall,
	}
	c.entries[f.ID] = e

	if policy == Reject {
		e.log.Status = rest.FragmentStatus{Kind: rest.Rejected, Reason: reason}
		return e.log.Status
	}

	if c.Strict {
		from := c.account(f.From)
		switch {
		case f.Counter != from.Counter:
			e.log.Status = rest.FragmentStatus{
				Kind:   rest.Rejected,
				Reason: fmt.Sprintf("invalid counter: expected %d, got %d", from.Counter, f.Counter),
			}
			return e.log.Status
		case f.Value > from.Value:
			e.log.Status = rest.FragmentStatus{
				Kind:   rest.Rejected,
				Reason: fmt.Sprintf("not enough funds: %d < %d", from.Value, f.Value),
			}
			return e.log.Status
		}
		from.Value -= f.Value
		from.Counter++
		c.account(f.To).Value += f.Value
	}

	e.log.Status = rest.FragmentStatus{Kind: rest.Pending}
	c.pending = append(c.pending, f.ID)
	return e.log.Status
}

// logs returns the fragment logs visible to a node.
func (c *Chain) logs(by string, isolated bool) []rest.FragmentLog {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make([]rest.FragmentLog, 0, len(c.entries))
	for _, e := range c.entries {
		if isolated && e.receivedBy != by {
			continue
		}
		res = append(res, e.log)
	}
	return res
}
