package fragment

import "github.com/mosaicnetworks/netharness/src/node/rest"

// Node is what the tracker needs from a running node. *node.Handle
// implements it.
type Node interface {
	Alias() string
	Rest() *rest.Client
	LogTail(n int) []string
}

// logTail is the number of node log lines attached to errors.
const logTail = 50
