package fragment

import (
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/netharness/src/node/rest"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func formatLogs(logs []string) string {
	if len(logs) == 0 {
		return "<no logs>"
	}
	return strings.Join(logs, "\n")
}

// FragmentNotInMemPoolLogsError means the node never reported the fragment.
type FragmentNotInMemPoolLogsError struct {
	Alias      string
	FragmentID string
	Logs       []string
}

func (e *FragmentNotInMemPoolLogsError) Error() string {
	return fmt.Sprintf("fragment '%s' not in the mempool of node '%s'. Logs:\n%s",
		e.FragmentID, e.Alias, formatLogs(e.Logs))
}

// FragmentRejectedError means the node refused the fragment.
type FragmentRejectedError struct {
	Alias      string
	FragmentID string
	Reason     string
	Logs       []string
}

func (e *FragmentRejectedError) Error() string {
	return fmt.Sprintf("fragment '%s' rejected by node '%s': %s",
		e.FragmentID, e.Alias, e.Reason)
}

// FragmentIsPendingForTooLongError means the fragment stayed in the mempool
// for the whole timeout.
type FragmentIsPendingForTooLongError struct {
	FragmentID string
	Duration   time.Duration
	Alias      string
	Logs       []string
}

func (e *FragmentIsPendingForTooLongError) Error() string {
	return fmt.Sprintf("fragment '%s' is pending for too long (%s) on node '%s'. Logs:\n%s",
		e.FragmentID, e.Duration, e.Alias, formatLogs(e.Logs))
}

// InconsistentBlockError means the nodes disagree on the block including the
// fragment.
type InconsistentBlockError struct {
	FragmentID string
	Statuses   map[string]rest.FragmentStatus
}

func (e *InconsistentBlockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fragment '%s' is not in the same block on every node:", e.FragmentID)
	aliases := maps.Keys(e.Statuses)
	slices.Sort(aliases)
	for _, alias := range aliases {
		fmt.Fprintf(&b, "\n  %s: %s", alias, e.Statuses[alias])
	}
	return b.String()
}
