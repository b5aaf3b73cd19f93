package nodetest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/netharness/src/node/rest"
)

// FragmentPolicy decides what a FakeNode does with submitted fragments.
type FragmentPolicy uint8

const (
	// Accept puts fragments in the mempool, to be included by the next block.
	Accept FragmentPolicy = iota
	// Reject refuses every fragment.
	Reject
	// Drop acknowledges fragments but never records them.
	Drop
	// Stall keeps fragments pending forever.
	Stall
)

type fragmentBody struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Value   uint64 `json:"value"`
	Counter uint32 `json:"counter"`
}

type tipOverride struct {
	height uint64
	hash   string
}

// FakeNode serves the node REST API on a local port.
type FakeNode struct {
	alias    string
	chain    *Chain
	listener net.Listener
	server   *http.Server

	mu           sync.Mutex
	state        rest.NodeState
	shutdownMsg  string
	policy       FragmentPolicy
	rejectReason string
	isolated     bool
	tip          *tipOverride
	onShutdown   func()
	statusCalls  int
}

// NewFakeNode starts a FakeNode on a random local port. Its initial state is
// Running.
func NewFakeNode(chain *Chain, alias string) (*FakeNode, error) {
	return NewFakeNodeOn(chain, alias, "127.0.0.1:0")
}

// NewFakeNodeOn starts a FakeNode listening on addr.
func NewFakeNodeOn(chain *Chain, alias string, addr string) (*FakeNode, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	n := &FakeNode{
		alias:        alias,
		chain:        chain,
		listener:     l,
		state:        rest.Running,
		rejectReason: "rejected by policy",
	}
	n.server = &http.Server{Handler: n.router()}

	go n.server.Serve(l)

	return n, nil
}

func (n *FakeNode) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", n.handleStatus).Methods("GET")
	r.HandleFunc("/tip", n.handleTip).Methods("GET")
	r.HandleFunc("/stats", n.handleStats).Methods("GET")
	r.HandleFunc("/fragment/logs", n.handleFragmentLogs).Methods("GET")
	r.HandleFunc("/fragment", n.handleFragment).Methods("POST")
	r.HandleFunc("/fragment/batch", n.handleBatch).Methods("POST")
	r.HandleFunc("/account/{address}", n.handleAccount).Methods("GET")
	r.HandleFunc("/shutdown", n.handleShutdown).Methods("GET")
	return r
}

// Alias ...
func (n *FakeNode) Alias() string {
	return n.alias
}

// Addr returns the host:port the node listens on.
func (n *FakeNode) Addr() string {
	return n.listener.Addr().String()
}

// URL returns the base URL of the node API.
func (n *FakeNode) URL() string {
	return "http://" + n.Addr()
}

// Close stops serving.
func (n *FakeNode) Close() error {
	return n.server.Close()
}

// SetState changes the state reported on /status and /stats.
func (n *FakeNode) SetState(s rest.NodeState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = s
}

// StatusCalls returns the number of /status requests served.
func (n *FakeNode) StatusCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statusCalls
}

// SetShutdownMessage makes /shutdown fail with msg. An empty msg restores
// normal behaviour.
func (n *FakeNode) SetShutdownMessage(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shutdownMsg = msg
}

// OnShutdown registers a function called after a successful /shutdown.
func (n *FakeNode) OnShutdown(f func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onShutdown = f
}

// SetPolicy changes what the node does with submitted fragments.
func (n *FakeNode) SetPolicy(p FragmentPolicy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.policy = p
}

// SetRejectReason sets the reason given by the Reject policy.
func (n *FakeNode) SetRejectReason(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejectReason = reason
}

// Isolate restricts the fragment logs of the node to the fragments submitted
// through it, as if gossip never reached it.
func (n *FakeNode) Isolate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isolated = true
}

// SetTip makes the node report its own height and tip instead of the chain's.
func (n *FakeNode) SetTip(height uint64, hash string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tip = &tipOverride{height: height, hash: hash}
}

// FollowChain undoes SetTip.
func (n *FakeNode) FollowChain() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tip = nil
}

func (n *FakeNode) currentTip() (uint64, string) {
	n.mu.Lock()
	override := n.tip
	n.mu.Unlock()
	if override != nil {
		return override.height, override.hash
	}
	return n.chain.Tip()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (n *FakeNode) handleStatus(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	n.statusCalls++
	state := n.state
	n.mu.Unlock()
	writeJSON(w, map[string]rest.NodeState{"state": state})
}

func (n *FakeNode) handleTip(w http.ResponseWriter, r *http.Request) {
	_, hash := n.currentTip()
	fmt.Fprint(w, hash)
}

func (n *FakeNode) handleStats(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	state := n.state
	n.mu.Unlock()

	height, hash := n.currentTip()
	writeJSON(w, rest.Stats{
		State: state,
		Stats: rest.NodeStats{
			LastBlockHeight: fmt.Sprintf("%d", height),
			LastBlockHash:   hash,
		},
	})
}

func (n *FakeNode) handleFragmentLogs(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	isolated := n.isolated
	n.mu.Unlock()
	writeJSON(w, n.chain.logs(n.alias, isolated))
}

func (n *FakeNode) receive(f fragmentBody) rest.FragmentStatus {
	n.mu.Lock()
	policy, reason := n.policy, n.rejectReason
	n.mu.Unlock()
	return n.chain.submit(f, n.alias, policy, reason)
}

func (n *FakeNode) handleFragment(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var f fragmentBody
	if err := json.Unmarshal(data, &f); err != nil || f.ID == "" {
		http.Error(w, "malformed fragment", http.StatusBadRequest)
		return
	}
	n.receive(f)
	fmt.Fprint(w, f.ID)
}

func (n *FakeNode) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req rest.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary := rest.BatchSummary{
		Accepted: []string{},
		Rejected: []rest.RejectedFragment{},
	}
	for _, raw := range req.Fragments {
		var f fragmentBody
		if err := json.Unmarshal(raw, &f); err != nil || f.ID == "" {
			http.Error(w, "malformed fragment", http.StatusBadRequest)
			return
		}
		status := n.receive(f)
		if status.Kind == rest.Rejected {
			summary.Rejected = append(summary.Rejected, rest.RejectedFragment{
				ID:     f.ID,
				Reason: status.Reason,
			})
			if req.FailFast {
				break
			}
			continue
		}
		summary.Accepted = append(summary.Accepted, f.ID)
	}

	writeJSON(w, summary)
}

func (n *FakeNode) handleAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, n.chain.Account(mux.Vars(r)["address"]))
}

func (n *FakeNode) handleShutdown(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	msg, cb := n.shutdownMsg, n.onShutdown
	n.mu.Unlock()

	if msg != "" {
		fmt.Fprint(w, msg)
		return
	}
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if cb != nil {
		go cb()
	}
}
