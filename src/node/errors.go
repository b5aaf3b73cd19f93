package node

import (
	"fmt"
	"strings"
	"time"
)

// logTail is the number of captured lines attached to errors.
const logTail = 50

func formatLogs(logs []string) string {
	if len(logs) == 0 {
		return "<no logs>"
	}
	return strings.Join(logs, "\n")
}

// PortUnavailableError is returned by Spawn when a port needed by the node is
// already bound.
type PortUnavailableError struct {
	Addr string
	Port int
	Err  error
}

func (e *PortUnavailableError) Error() string {
	return fmt.Sprintf("port %d is not available (%s): %v", e.Port, e.Addr, e.Err)
}

func (e *PortUnavailableError) Unwrap() error {
	return e.Err
}

// BootstrapTimeoutError is returned by WaitForBootstrap when the node did not
// report Running in time.
type BootstrapTimeoutError struct {
	Alias   string
	Elapsed time.Duration
	Logs    []string
}

func (e *BootstrapTimeoutError) Error() string {
	return fmt.Sprintf("node '%s' did not bootstrap within %s. Logs:\n%s",
		e.Alias, e.Elapsed.Round(time.Millisecond), formatLogs(e.Logs))
}

// ProcessExitedError is returned when the node process exits while the
// harness waits for it to reach another state.
type ProcessExitedError struct {
	Alias string
	State State
	Err   error
	Logs  []string
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("node '%s' exited while %s: %v. Logs:\n%s",
		e.Alias, e.State, e.Err, formatLogs(e.Logs))
}

func (e *ProcessExitedError) Unwrap() error {
	return e.Err
}

// ShutdownProcedureError is returned by Shutdown when the node refused the
// shutdown request.
type ShutdownProcedureError struct {
	Alias   string
	Message string
	Logs    []string
}

func (e *ShutdownProcedureError) Error() string {
	return fmt.Sprintf("node '%s' failed to shutdown, due to: %s. Logs:\n%s",
		e.Alias, e.Message, formatLogs(e.Logs))
}

// NodeFailedToShutdownError is returned by Shutdown when the process did not
// exit cleanly after an accepted shutdown request.
type NodeFailedToShutdownError struct {
	Alias string
	Cause string
	Logs  []string
}

func (e *NodeFailedToShutdownError) Error() string {
	return fmt.Sprintf("node '%s' was not properly shutdown: %s. Logs:\n%s",
		e.Alias, e.Cause, formatLogs(e.Logs))
}

// TransitionError is returned when an operation is not allowed in the current
// state of a node.
type TransitionError struct {
	Alias string
	From  State
	To    State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("node '%s' cannot go from %s to %s", e.Alias, e.From, e.To)
}
