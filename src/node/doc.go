// Package node supervises the node processes of a test network.
//
// A Controller spawns one OS process per node and returns a Handle owning
// everything about it: the process, a REST client, an optional wire protocol
// client, a bounded buffer of the process's stderr, and its working directory.
//
// Lifecycle
//
// Every Handle goes through the following states:
//
//  NotStarted -> Bootstrapping -> Running -> ShuttingDown -> Stopped
//
// Failed is reachable from Bootstrapping, Running and ShuttingDown, and
// carries the reason of the failure. Transitions only happen through the
// Controller: Spawn enters Bootstrapping, WaitForBootstrap enters Running once
// the node reports so on its status endpoint, and Shutdown asks the node to
// stop over REST before waiting for the process to exit.
//
// Logs
//
// The stderr of the process is captured for its whole lifetime, independently
// of the state machine. Lines that are JSON log records are parsed, so that
// failures can be diagnosed with structured queries such as "error lines
// matching a pattern" rather than with ad hoc string matching. Every error
// returned by the Controller carries the tail of that buffer.
package node
