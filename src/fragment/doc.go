// Package fragment submits signed value transfers to nodes and follows them
// until they are included in a block.
//
// Every check classifies the fragment on a node as exactly one of
//
//	absent:   the node never saw it (propagation problem)
//	rejected: the node refused it (validation problem)
//	pending:  the node holds it but no block includes it (performance problem)
//	in block: success, with the block date and hash
//
// Absent and pending are retried until the timeout; rejected is final.
package fragment
