// Package synctime measures how long a set of nodes takes to agree on a tip.
//
// Convergence is declared once at least NetworkSize - Tolerance nodes report
// the same (height, tip) pair, the majority tip. Nodes that cannot be reached
// count as disagreeing.
package synctime
