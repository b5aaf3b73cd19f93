package topology

import (
	"errors"
	"fmt"
)

// ErrCircularTrust is returned by Build when the trust graph contains a cycle.
var ErrCircularTrust = errors.New("Circular dependency in network topology")

// UnknownPeerError is returned by Build when a node trusts an undeclared
// alias.
type UnknownPeerError struct {
	Alias string
	Peer  string
}

func (e *UnknownPeerError) Error() string {
	return fmt.Sprintf("node '%s' trusts unknown peer '%s'", e.Alias, e.Peer)
}

// DuplicateAliasError is returned by Build when two nodes share an alias.
type DuplicateAliasError struct {
	Alias string
}

func (e *DuplicateAliasError) Error() string {
	return fmt.Sprintf("node '%s' is declared more than once", e.Alias)
}
