package mock

import (
	"sync"
	"time"

	"github.com/mosaicnetworks/netharness/src/net"
)

// verifyPollInterval is how often FinishAndVerifyWithin re-evaluates its
// predicate.
const verifyPollInterval = 50 * time.Millisecond

// Controller drives a running mock peer.
type Controller struct {
	server   *server
	stopOnce sync.Once
}

// Addr returns the address the mock listens on.
func (c *Controller) Addr() string {
	return c.server.trans.LocalAddr()
}

// SetTipBlock replaces the tip served by the mock.
func (c *Controller) SetTipBlock(b net.Block) {
	c.server.setTip(b)
}

// Verifier returns a Verifier over the calls recorded so far.
func (c *Controller) Verifier() *Verifier {
	return NewVerifier(c.server.calls.Entries())
}

// Stop closes the mock without verifying anything. It is safe to call more
// than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(c.server.stop)
}

// FinishAndVerify stops accepting calls and evaluates pred over the final
// call log.
func (c *Controller) FinishAndVerify(pred func(*Verifier) bool) ExitCode {
	c.Stop()
	if pred(c.Verifier()) {
		return Success
	}
	return Failure
}

// FinishAndVerifyWithin waits up to timeout for pred to hold, then behaves
// like FinishAndVerify.
func (c *Controller) FinishAndVerifyWithin(timeout time.Duration, pred func(*Verifier) bool) ExitCode {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pred(c.Verifier()) {
			break
		}
		time.Sleep(verifyPollInterval)
	}
	return c.FinishAndVerify(pred)
}
