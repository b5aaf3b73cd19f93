package node

import (
	"os/exec"
	"sync"

	"github.com/mosaicnetworks/netharness/src/net"
	"github.com/mosaicnetworks/netharness/src/node/rest"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/sirupsen/logrus"
)

// Handle is the runtime context of one spawned node. It is owned by the code
// that spawned it; only the Controller changes its state.
type Handle struct {
	state

	descriptor topology.NodeDescriptor
	params     SpawnParams
	workDir    string

	cmd  *exec.Cmd
	rest *rest.Client
	wire *net.Client
	logs *LogBuffer

	exited  chan struct{}
	exitMu  sync.Mutex
	exitErr error

	logger *logrus.Entry
}

// Alias returns the alias of the node.
func (h *Handle) Alias() string {
	return h.descriptor.Alias
}

// Descriptor returns the topology declaration of the node.
func (h *Handle) Descriptor() topology.NodeDescriptor {
	return h.descriptor
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	return h.getState()
}

// FailureReason returns why the node is Failed, or an empty string.
func (h *Handle) FailureReason() string {
	return h.failureReason()
}

// Rest returns the REST client of the node.
func (h *Handle) Rest() *rest.Client {
	return h.rest
}

// Wire returns the wire protocol client of the node, or nil when the node has
// no P2P address.
func (h *Handle) Wire() *net.Client {
	return h.wire
}

// Logs returns the captured stderr of the process.
func (h *Handle) Logs() *LogBuffer {
	return h.logs
}

// LogTail returns the last n captured lines.
func (h *Handle) LogTail(n int) []string {
	return h.logs.Tail(n)
}

// WorkingDir returns the directory owned by the node.
func (h *Handle) WorkingDir() string {
	return h.workDir
}

// RESTAddr ...
func (h *Handle) RESTAddr() string {
	return h.params.RESTAddr
}

// P2PAddr ...
func (h *Handle) P2PAddr() string {
	return h.params.P2PAddr
}

// Pid returns the process id, or 0 if the process was not started.
func (h *Handle) Pid() int {
	if h.cmd == nil || h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Exited is closed once the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// ExitErr returns the result of the process once it exited.
func (h *Handle) ExitErr() error {
	h.exitMu.Lock()
	defer h.exitMu.Unlock()
	return h.exitErr
}

func (h *Handle) hasExited() bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}

// IsUp reports whether the node answers Running on its status endpoint.
func (h *Handle) IsUp() bool {
	s, err := h.rest.Status()
	return err == nil && s == rest.Running
}

// Tip returns the tip hash reported by the node.
func (h *Handle) Tip() (string, error) {
	return h.rest.Tip()
}

// Stats returns the statistics reported by the node.
func (h *Handle) Stats() (*rest.Stats, error) {
	return h.rest.Stats()
}
