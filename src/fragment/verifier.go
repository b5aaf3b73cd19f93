package fragment

import (
	"fmt"
	"time"

	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/node/rest"
	"github.com/sirupsen/logrus"
)

// Verifier polls fragment logs until fragments reach a final state.
type Verifier struct {
	pollInterval time.Duration
	journal      journal.Journal
	logger       *logrus.Entry
}

// NewVerifier creates a Verifier polling every pollInterval. The journal may
// be nil.
func NewVerifier(pollInterval time.Duration, j journal.Journal, logger *logrus.Entry) *Verifier {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &Verifier{
		pollInterval: pollInterval,
		journal:      j,
		logger:       logger,
	}
}

// status looks the fragment up in the node's fragment logs.
func status(node Node, id string) (rest.FragmentStatus, error) {
	logs, err := node.Rest().FragmentLogs()
	if err != nil {
		return rest.FragmentStatus{}, fmt.Errorf("fetching fragment logs of node '%s': %w", node.Alias(), err)
	}
	l, ok := logs[id]
	if !ok {
		return rest.FragmentStatus{Kind: rest.NotFound}, nil
	}
	return l.Status, nil
}

// WaitAndVerifyIsInBlock waits up to timeout for the fragment to be in a
// block on node. A rejection fails immediately. When the timeout elapses, the
// error tells whether the node never saw the fragment or kept it pending.
func (v *Verifier) WaitAndVerifyIsInBlock(timeout time.Duration, check MemPoolCheck, node Node) (rest.FragmentStatus, error) {
	start := time.Now()
	logger := v.logger.WithFields(logrus.Fields{
		"fragment": check.FragmentID,
		"node":     node.Alias(),
	})

	for {
		s, err := status(node, check.FragmentID)
		if err != nil {
			return s, err
		}

		switch s.Kind {
		case rest.InABlock:
			logger.WithField("status", s).Debug("fragment in block")
			v.record(check, node.Alias(), s.String(), "")
			return s, nil
		case rest.Rejected:
			v.record(check, node.Alias(), s.String(), s.Reason)
			return s, &FragmentRejectedError{
				Alias:      node.Alias(),
				FragmentID: check.FragmentID,
				Reason:     s.Reason,
				Logs:       node.LogTail(logTail),
			}
		}

		elapsed := time.Since(start)
		if elapsed >= timeout {
			v.record(check, node.Alias(), s.String(), fmt.Sprintf("timeout after %s", elapsed))
			if s.Kind == rest.NotFound {
				return s, &FragmentNotInMemPoolLogsError{
					Alias:      node.Alias(),
					FragmentID: check.FragmentID,
					Logs:       node.LogTail(logTail),
				}
			}
			return s, &FragmentIsPendingForTooLongError{
				FragmentID: check.FragmentID,
				Duration:   elapsed,
				Alias:      node.Alias(),
				Logs:       node.LogTail(logTail),
			}
		}

		logger.WithField("status", s).Debug("waiting for fragment")

		sleep := v.pollInterval
		if remaining := timeout - elapsed; remaining < sleep {
			sleep = remaining
		}
		time.Sleep(sleep)
	}
}

// WaitAndVerifyIsInBlockOnAll waits for the fragment to be in a block on every
// node and checks that they all agree on that block. The timeout applies to
// the whole call.
func (v *Verifier) WaitAndVerifyIsInBlockOnAll(timeout time.Duration, check MemPoolCheck, nodes []Node) (*FragmentRecord, error) {
	record := NewFragmentRecord(check)
	deadline := time.Now().Add(timeout)

	for _, n := range nodes {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		s, err := v.WaitAndVerifyIsInBlock(remaining, check, n)
		record.Set(n.Alias(), s)
		if err != nil {
			return record, err
		}
	}

	if len(nodes) > 0 && !record.Converged() {
		return record, &InconsistentBlockError{
			FragmentID: check.FragmentID,
			Statuses:   record.Outcomes(),
		}
	}
	return record, nil
}

func (v *Verifier) record(check MemPoolCheck, alias, outcome, detail string) {
	if v.journal == nil {
		return
	}
	_, err := v.journal.Append(journal.Record{
		Kind:    journal.FragmentOutcome,
		Subject: check.FragmentID,
		Alias:   alias,
		Outcome: outcome,
		Detail:  detail,
	})
	if err != nil {
		v.logger.WithError(err).Warn("failed to write journal")
	}
}
