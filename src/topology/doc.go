// Package topology validates the declared trust relationships of a test
// network and derives the order in which its nodes must be spawned.
//
// A node trusts a set of peers, which it uses to bootstrap its P2P layer. The
// harness requires every trusted peer to already be listening when a node
// starts, so the trust graph must be acyclic: Build rejects undeclared peers
// and cycles, and computes a deterministic spawn order where every node comes
// after all the nodes it trusts. Ties are broken by declaration order.
package topology
