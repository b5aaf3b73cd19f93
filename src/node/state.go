package node

import (
	"sync"
	"sync/atomic"
)

// State captures the lifecycle state of a node process: NotStarted,
// Bootstrapping, Running, ShuttingDown, Stopped, or Failed.
type State uint32

const (
	// NotStarted is the initial state of a Handle.
	NotStarted State = iota
	// Bootstrapping means the process was launched but has not reported
	// Running yet.
	Bootstrapping
	// Running means the node reported Running on its status endpoint.
	Running
	// ShuttingDown means a shutdown request was issued.
	ShuttingDown
	// Stopped means the process exited cleanly after a shutdown request.
	Stopped
	// Failed means something went wrong. The reason is kept by the Handle.
	Failed
)

// String ...
func (s State) String() string {
	switch s {
	case NotStarted:
		return "NotStarted"
	case Bootstrapping:
		return "Bootstrapping"
	case Running:
		return "Running"
	case ShuttingDown:
		return "ShuttingDown"
	case Stopped:
		return "Stopped"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no transition can leave the state.
func (s State) IsTerminal() bool {
	return s == Stopped || s == Failed
}

var transitions = map[State][]State{
	NotStarted:    {Bootstrapping},
	Bootstrapping: {Running, Failed},
	Running:       {ShuttingDown, Failed},
	ShuttingDown:  {Stopped, Failed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type state struct {
	state State

	reasonLock sync.Mutex
	reason     string
}

func (b *state) getState() State {
	stateAddr := (*uint32)(&b.state)
	return State(atomic.LoadUint32(stateAddr))
}

// transition moves from the current state to s if the state machine allows it.
// It returns the state that was current when the call was made.
func (b *state) transition(s State) (State, bool) {
	stateAddr := (*uint32)(&b.state)
	for {
		cur := State(atomic.LoadUint32(stateAddr))
		if !canTransition(cur, s) {
			return cur, false
		}
		if atomic.CompareAndSwapUint32(stateAddr, uint32(cur), uint32(s)) {
			return cur, true
		}
	}
}

// fail moves to Failed unless the state is already terminal. The first reason
// is kept.
func (b *state) fail(reason string) bool {
	if _, ok := b.transition(Failed); !ok {
		return false
	}
	b.reasonLock.Lock()
	b.reason = reason
	b.reasonLock.Unlock()
	return true
}

func (b *state) failureReason() string {
	b.reasonLock.Lock()
	defer b.reasonLock.Unlock()
	return b.reason
}
