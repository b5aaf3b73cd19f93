package topology

import (
	"fmt"

	"golang.org/x/exp/slices"
)

const (
	white = iota // not visited
	grey         // on the current DFS path
	black        // fully explored
)

// Topology is a validated set of node declarations with their trust graph.
// It is read-only after Build.
type Topology struct {
	nodes   []NodeDescriptor
	index   map[string]int
	trusted [][]int // trusted[i] lists the nodes that node i trusts
	order   []int
}

// Build validates the descriptors and computes the spawn order.
func Build(descriptors []NodeDescriptor) (*Topology, error) {
	t := &Topology{
		nodes:   make([]NodeDescriptor, len(descriptors)),
		index:   make(map[string]int, len(descriptors)),
		trusted: make([][]int, len(descriptors)),
	}

	for i, d := range descriptors {
		if d.Alias == "" {
			return nil, fmt.Errorf("node #%d has an empty alias", i)
		}
		if _, ok := t.index[d.Alias]; ok {
			return nil, &DuplicateAliasError{Alias: d.Alias}
		}
		t.index[d.Alias] = i
		t.nodes[i] = d
		t.nodes[i].TrustedPeers = append([]string(nil), d.TrustedPeers...)
	}

	for i, d := range t.nodes {
		for _, p := range d.TrustedPeers {
			j, ok := t.index[p]
			if !ok {
				return nil, &UnknownPeerError{Alias: d.Alias, Peer: p}
			}
			if !slices.Contains(t.trusted[i], j) {
				t.trusted[i] = append(t.trusted[i], j)
			}
		}
	}

	if t.hasCycle() {
		return nil, ErrCircularTrust
	}

	t.order = t.kahn()

	return t, nil
}

// hasCycle runs an iterative depth-first traversal over trust edges.
func (t *Topology) hasCycle() bool {
	marks := make([]int, len(t.nodes))

	type frame struct {
		node int
		next int // index of the next trusted peer to explore
	}

	for root := range t.nodes {
		if marks[root] != white {
			continue
		}

		stack := []frame{{node: root}}
		marks[root] = grey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]

			if top.next == len(t.trusted[top.node]) {
				marks[top.node] = black
				stack = stack[:len(stack)-1]
				continue
			}

			peer := t.trusted[top.node][top.next]
			top.next++

			switch marks[peer] {
			case grey:
				return true
			case white:
				marks[peer] = grey
				stack = append(stack, frame{node: peer})
			}
		}
	}

	return false
}

// kahn returns a topological order where every node follows the nodes it
// trusts. Among the nodes that are ready, the one declared first goes first.
func (t *Topology) kahn() []int {
	pending := make([]int, len(t.nodes))
	trustedBy := make([][]int, len(t.nodes))

	for i, peers := range t.trusted {
		pending[i] = len(peers)
		for _, p := range peers {
			trustedBy[p] = append(trustedBy[p], i)
		}
	}

	ready := []int{}
	for i := range t.nodes {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]int, 0, len(t.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		for _, m := range trustedBy[n] {
			pending[m]--
			if pending[m] == 0 {
				pos, _ := slices.BinarySearch(ready, m)
				ready = slices.Insert(ready, pos, m)
			}
		}
	}

	return order
}

// SpawnOrder returns the aliases in the order they must be spawned.
func (t *Topology) SpawnOrder() []string {
	res := make([]string, len(t.order))
	for i, n := range t.order {
		res[i] = t.nodes[n].Alias
	}
	return res
}

// Aliases returns the aliases in declaration order.
func (t *Topology) Aliases() []string {
	res := make([]string, len(t.nodes))
	for i, n := range t.nodes {
		res[i] = n.Alias
	}
	return res
}

// Len returns the number of declared nodes.
func (t *Topology) Len() int {
	return len(t.nodes)
}

// Node returns the descriptor of a node.
func (t *Topology) Node(alias string) (NodeDescriptor, bool) {
	i, ok := t.index[alias]
	if !ok {
		return NodeDescriptor{}, false
	}
	return t.nodes[i], true
}

// TrustedPeers returns the deduplicated aliases trusted by a node, in
// declaration order.
func (t *Topology) TrustedPeers(alias string) []string {
	i, ok := t.index[alias]
	if !ok {
		return nil
	}
	res := make([]string, len(t.trusted[i]))
	for k, p := range t.trusted[i] {
		res[k] = t.nodes[p].Alias
	}
	return res
}

// Leaders returns the aliases of the Leader nodes in declaration order.
func (t *Topology) Leaders() []string {
	res := []string{}
	for _, n := range t.nodes {
		if n.IsLeader() {
			res = append(res, n.Alias)
		}
	}
	return res
}

// LongestPath returns the number of nodes on the longest trust chain. A
// fragment may need that many hops to reach every node.
func (t *Topology) LongestPath() int {
	depth := make([]int, len(t.nodes))
	longest := 0
	for _, n := range t.order {
		d := 1
		for _, p := range t.trusted[n] {
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}
		depth[n] = d
		if d > longest {
			longest = d
		}
	}
	return longest
}
