package fragment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/node/rest"
	"github.com/mosaicnetworks/netharness/src/wallet"
	"github.com/sirupsen/logrus"
)

// Sender submits fragments to nodes.
type Sender struct {
	verifier *Verifier
	timeout  time.Duration
	journal  journal.Journal
	logger   *logrus.Entry
}

// NewSender creates a Sender. timeout bounds the wait for each fragment of a
// round trip. The journal may be nil.
func NewSender(verifier *Verifier, timeout time.Duration, j journal.Journal, logger *logrus.Entry) *Sender {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}
	return &Sender{
		verifier: verifier,
		timeout:  timeout,
		journal:  j,
		logger:   logger,
	}
}

// Submit posts an already built fragment to node.
func (s *Sender) Submit(f *Fragment, node Node) (MemPoolCheck, error) {
	raw, err := f.JSON()
	if err != nil {
		return MemPoolCheck{}, err
	}

	id, err := node.Rest().PostFragment(raw)
	if err != nil {
		return MemPoolCheck{}, fmt.Errorf("sending fragment to node '%s': %w", node.Alias(), err)
	}
	if id == "" {
		id = f.ID
	}
	if id != f.ID {
		s.logger.WithFields(logrus.Fields{
			"expected": f.ID,
			"got":      id,
			"node":     node.Alias(),
		}).Warn("node returned an unexpected fragment id")
	}

	check := MemPoolCheck{FragmentID: id, Alias: node.Alias()}
	s.logger.WithFields(logrus.Fields{
		"fragment": id,
		"node":     node.Alias(),
		"value":    f.Value,
		"counter":  f.Counter,
	}).Debug("fragment sent")

	if s.journal != nil {
		_, err := s.journal.Append(journal.Record{
			Kind:    journal.FragmentSent,
			Subject: id,
			Alias:   node.Alias(),
			Detail:  fmt.Sprintf("%s -> %s: %d", f.From, f.To, f.Value),
		})
		if err != nil {
			s.logger.WithError(err).Warn("failed to write journal")
		}
	}

	return check, nil
}

// SendTransaction transfers value from one wallet to another through node.
// The sender's counter is advanced once the node accepted the submission.
func (s *Sender) SendTransaction(from, to *wallet.Wallet, node Node, value uint64) (MemPoolCheck, error) {
	f, err := New(from, to, value)
	if err != nil {
		return MemPoolCheck{}, err
	}
	check, err := s.Submit(f, node)
	if err != nil {
		return check, err
	}
	from.ConfirmTransaction()
	return check, nil
}

// SendTransactionsRoundTrip sends n transfers from a to b and n from b to a,
// alternating, through the same node. Each transfer must be in a block before
// the next one is sent.
func (s *Sender) SendTransactionsRoundTrip(n int, a, b *wallet.Wallet, node Node, value uint64) ([]MemPoolCheck, error) {
	return s.SendTransactionsRoundTripVia(n, a, b, node, node, value)
}

// SendTransactionsRoundTripVia is SendTransactionsRoundTrip with the a to b
// transfers going through nodeA and the b to a transfers through nodeB.
func (s *Sender) SendTransactionsRoundTripVia(n int, a, b *wallet.Wallet, nodeA, nodeB Node, value uint64) ([]MemPoolCheck, error) {
	checks := make([]MemPoolCheck, 0, 2*n)

	send := func(from, to *wallet.Wallet, node Node) error {
		check, err := s.SendTransaction(from, to, node, value)
		if err != nil {
			return err
		}
		checks = append(checks, check)
		_, err = s.verifier.WaitAndVerifyIsInBlock(s.timeout, check, node)
		return err
	}

	for i := 0; i < n; i++ {
		if err := send(a, b, nodeA); err != nil {
			return checks, err
		}
		if err := send(b, a, nodeB); err != nil {
			return checks, err
		}
	}
	return checks, nil
}

// SendBatch posts fragments in one request. With failFast, the node stops at
// the first rejection and SendBatch returns a *FragmentRejectedError for it.
// Otherwise the summary lists the outcome of every fragment.
func (s *Sender) SendBatch(fragments []*Fragment, failFast bool, node Node) (*rest.BatchSummary, error) {
	raws := make([]json.RawMessage, 0, len(fragments))
	for _, f := range fragments {
		raw, err := f.JSON()
		if err != nil {
			return nil, err
		}
		raws = append(raws, raw)
	}

	summary, err := node.Rest().PostBatch(failFast, raws)
	if err != nil {
		return nil, fmt.Errorf("sending batch to node '%s': %w", node.Alias(), err)
	}

	s.logger.WithFields(logrus.Fields{
		"node":      node.Alias(),
		"accepted":  len(summary.Accepted),
		"rejected":  len(summary.Rejected),
		"fail_fast": failFast,
	}).Debug("batch sent")

	if failFast && len(summary.Rejected) > 0 {
		r := summary.Rejected[0]
		return summary, &FragmentRejectedError{
			Alias:      node.Alias(),
			FragmentID: r.ID,
			Reason:     r.Reason,
			Logs:       node.LogTail(logTail),
		}
	}
	return summary, nil
}
