package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/netharness/src/config"
	"github.com/mosaicnetworks/netharness/src/fragment"
	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/node"
	"github.com/mosaicnetworks/netharness/src/synctime"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/mosaicnetworks/netharness/src/wallet"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Controller owns every node of a network, the wallets used to sign
// fragments, and the run journal.
type Controller struct {
	conf     *config.Config
	topology *topology.Topology
	builder  *Builder
	nodes    *node.Controller

	handleLock sync.Mutex
	handles    map[string]*node.Handle
	spawning   map[string]bool
	spawned    []string

	wallets map[string]*wallet.Wallet

	journal  journal.Journal
	verifier *fragment.Verifier
	sender   *fragment.Sender

	logger *logrus.Entry
}

// Topology returns the validated topology of the network.
func (c *Controller) Topology() *topology.Topology {
	return c.topology
}

// Journal ...
func (c *Controller) Journal() journal.Journal {
	return c.journal
}

// FragmentSender returns a Sender tracking fragments with the configured
// timeout.
func (c *Controller) FragmentSender() *fragment.Sender {
	return c.sender
}

// FragmentVerifier ...
func (c *Controller) FragmentVerifier() *fragment.Verifier {
	return c.verifier
}

func (c *Controller) event(alias, outcome, detail string) {
	_, err := c.journal.Append(journal.Record{
		Kind:    journal.NodeEvent,
		Subject: alias,
		Alias:   alias,
		Outcome: outcome,
		Detail:  detail,
	})
	if err != nil {
		c.logger.WithError(err).Error("Writing journal")
	}
}

// Spawn launches the node declared with the given alias and waits until it
// is Running. Every peer it trusts must already be Running. An alias is
// reserved from the first call, so concurrent calls launch one process.
func (c *Controller) Spawn(alias string) (*node.Handle, error) {
	desc, ok := c.topology.Node(alias)
	if !ok {
		return nil, &NodeNotFoundError{Alias: alias}
	}

	c.handleLock.Lock()
	if _, ok := c.handles[alias]; ok || c.spawning[alias] {
		c.handleLock.Unlock()
		return nil, fmt.Errorf("node '%s' already spawned", alias)
	}
	peers := make([]node.TrustedPeer, 0, len(desc.TrustedPeers))
	for _, p := range c.topology.TrustedPeers(alias) {
		h, ok := c.handles[p]
		if !ok || h.State() != node.Running {
			c.handleLock.Unlock()
			return nil, &PeerNotSpawnedError{Alias: alias, Peer: p}
		}
		peers = append(peers, node.TrustedPeer{Address: h.P2PAddr()})
	}
	c.spawning[alias] = true
	c.handleLock.Unlock()

	defer func() {
		c.handleLock.Lock()
		delete(c.spawning, alias)
		c.handleLock.Unlock()
	}()

	restAddr, err := node.FreeAddr()
	if err != nil {
		return nil, err
	}
	p2pAddr, err := node.FreeAddr()
	if err != nil {
		return nil, err
	}

	env := append([]string{}, c.builder.env...)
	env = append(env, c.builder.nodeEnv[alias]...)

	params := node.SpawnParams{
		BinaryArgs:   c.builder.binaryArgs,
		Env:          env,
		RESTAddr:     restAddr,
		P2PAddr:      p2pAddr,
		TrustedPeers: peers,
		GenesisBlock: c.builder.genesisBlock,
		GenesisHash:  c.builder.genesisHash,
		Secret:       c.builder.secrets[alias],
	}

	h, err := c.nodes.Spawn(desc, params)
	if err != nil {
		c.event(alias, "spawn_failed", err.Error())
		return nil, err
	}

	c.handleLock.Lock()
	c.handles[alias] = h
	c.spawned = append(c.spawned, alias)
	c.handleLock.Unlock()

	c.event(alias, node.Bootstrapping.String(), h.RESTAddr())

	start := time.Now()
	if err := c.nodes.WaitForBootstrap(h, 0); err != nil {
		c.event(alias, node.Failed.String(), err.Error())
		return h, err
	}
	c.event(alias, node.Running.String(), time.Since(start).String())

	c.logger.WithFields(logrus.Fields{
		"alias": alias,
		"rest":  h.RESTAddr(),
		"p2p":   h.P2PAddr(),
	}).Info("Node spawned")

	return h, nil
}

// SpawnAll spawns every node in topological order, stopping at the first
// failure.
func (c *Controller) SpawnAll() ([]*node.Handle, error) {
	order := c.topology.SpawnOrder()
	res := make([]*node.Handle, 0, len(order))
	for _, alias := range order {
		h, err := c.Spawn(alias)
		if err != nil {
			return res, err
		}
		res = append(res, h)
	}
	return res, nil
}

// Node returns the handle of a spawned node.
func (c *Controller) Node(alias string) (*node.Handle, error) {
	c.handleLock.Lock()
	defer c.handleLock.Unlock()

	h, ok := c.handles[alias]
	if !ok {
		return nil, &NodeNotFoundError{Alias: alias}
	}
	return h, nil
}

// Nodes returns the spawned nodes in spawn order.
func (c *Controller) Nodes() []*node.Handle {
	c.handleLock.Lock()
	defer c.handleLock.Unlock()

	res := make([]*node.Handle, 0, len(c.spawned))
	for _, alias := range c.spawned {
		res = append(res, c.handles[alias])
	}
	return res
}

// FragmentNodes returns the named nodes, or every spawned node when no alias
// is given, as fragment targets.
func (c *Controller) FragmentNodes(aliases ...string) ([]fragment.Node, error) {
	handles, err := c.lookup(aliases)
	if err != nil {
		return nil, err
	}
	res := make([]fragment.Node, len(handles))
	for i, h := range handles {
		res[i] = h
	}
	return res, nil
}

// SyncNodes is like FragmentNodes for the sync measurer.
func (c *Controller) SyncNodes(aliases ...string) ([]synctime.Node, error) {
	handles, err := c.lookup(aliases)
	if err != nil {
		return nil, err
	}
	res := make([]synctime.Node, len(handles))
	for i, h := range handles {
		res[i] = h
	}
	return res, nil
}

func (c *Controller) lookup(aliases []string) ([]*node.Handle, error) {
	if len(aliases) == 0 {
		return c.Nodes(), nil
	}
	res := make([]*node.Handle, 0, len(aliases))
	for _, a := range aliases {
		h, err := c.Node(a)
		if err != nil {
			return nil, err
		}
		res = append(res, h)
	}
	return res, nil
}

// Wallet returns a registered wallet.
func (c *Controller) Wallet(alias string) (*wallet.Wallet, error) {
	w, ok := c.wallets[alias]
	if !ok {
		return nil, &WalletNotFoundError{Alias: alias}
	}
	return w, nil
}

// SyncMeasurer returns a Measurer configured for this network, writing its
// measurements to the journal.
func (c *Controller) SyncMeasurer(params synctime.WaitParams) *synctime.Measurer {
	return synctime.NewMeasurer(params, c.conf.SyncPollInterval, c.logger.WithField("component", "sync")).
		WithReportInterval(synctime.Custom(c.conf.ReportInterval)).
		WithJournal(c.journal)
}

// MeasureSync waits until every spawned node agrees on the tip and logs
// the elapsed time under label.
func (c *Controller) MeasureSync(label string) (time.Duration, error) {
	nodes, err := c.SyncNodes()
	if err != nil {
		return 0, err
	}
	return c.SyncMeasurer(synctime.NetworkSize(len(nodes), 0)).MeasureAndLog(nodes, label)
}

// Shutdown stops every spawned node concurrently. Running nodes are asked to
// shut down. Nodes that refuse, and nodes that never reached Running, are
// killed. Every failure is reported.
func (c *Controller) Shutdown() error {
	var (
		result     *multierror.Error
		resultLock sync.Mutex
	)

	eg, _ := errgroup.WithContext(context.Background())
	for _, h := range c.Nodes() {
		h := h
		eg.Go(func() error {
			err := c.stop(h)
			if err != nil {
				resultLock.Lock()
				result = multierror.Append(result, err)
				resultLock.Unlock()
			}
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		c.logger.WithError(err).Error("Network shutdown")
	}
	return result.ErrorOrNil()
}

func (c *Controller) stop(h *node.Handle) error {
	switch h.State() {
	case node.Stopped:
		return nil
	case node.Running:
		err := c.nodes.Shutdown(h)
		if err == nil {
			c.event(h.Alias(), node.Stopped.String(), "")
			return nil
		}
		c.event(h.Alias(), node.Failed.String(), err.Error())
		if kerr := c.nodes.Kill(h); kerr != nil {
			c.logger.WithError(kerr).WithField("alias", h.Alias()).Error("Kill")
		}
		return err
	default:
		if err := c.nodes.Kill(h); err != nil {
			return err
		}
		c.event(h.Alias(), "killed", h.FailureReason())
		return nil
	}
}

// Finish shuts the network down and closes the journal. When failed is set
// and the configuration asks for it, the node directories and the journal
// are copied first, and the returned string is the directory holding the
// copy.
func (c *Controller) Finish(failed bool, extra map[string]string) (string, error) {
	var result *multierror.Error
	if err := c.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}

	dir := ""
	if failed && c.conf.PersistOnFailure {
		d, err := c.PersistOnFailure(extra)
		if err != nil {
			result = multierror.Append(result, err)
		}
		dir = d
	}

	if err := c.journal.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return dir, result.ErrorOrNil()
}
