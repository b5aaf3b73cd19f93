package network

import "fmt"

// NodeNotFoundError is returned when looking up a node that was not spawned.
type NodeNotFoundError struct {
	Alias string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node '%s' not found", e.Alias)
}

// WalletNotFoundError is returned when looking up an unknown wallet.
type WalletNotFoundError struct {
	Alias string
}

func (e *WalletNotFoundError) Error() string {
	return fmt.Sprintf("wallet '%s' not found", e.Alias)
}

// PeerNotSpawnedError is returned when spawning a node before one of the
// nodes it trusts.
type PeerNotSpawnedError struct {
	Alias string
	Peer  string
}

func (e *PeerNotSpawnedError) Error() string {
	return fmt.Sprintf("cannot spawn node '%s': trusted peer '%s' is not running", e.Alias, e.Peer)
}
