package network

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/config"
	"github.com/mosaicnetworks/netharness/src/journal"
	"github.com/mosaicnetworks/netharness/src/node"
	"github.com/mosaicnetworks/netharness/src/node/nodetest"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/mosaicnetworks/netharness/src/wallet"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperNodeProcess is the node binary launched by the other tests.
func TestHelperNodeProcess(t *testing.T) {
	if !nodetest.IsHelper() {
		return
	}
	os.Exit(nodetest.RunHelperNode())
}

func testConfig(t *testing.T) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.NodeBinary = os.Args[0]
	conf.BootstrapTimeout = 10 * time.Second
	conf.BootstrapPollInterval = 100 * time.Millisecond
	conf.ShutdownTimeout = 5 * time.Second
	return conf
}

func newTestBuilder(t *testing.T) *Builder {
	return NewBuilder(testConfig(t)).
		WithBinaryArgs(nodetest.HelperArgs("TestHelperNodeProcess")...).
		WithEnv(nodetest.HelperEnvFor(nodetest.ModeNormal)...)
}

func threeNodes() []topology.NodeDescriptor {
	return []topology.NodeDescriptor{
		topology.NewNode("passive").WithTrustedPeer("leader2").WithTrustedPeer("leader1").Passive(),
		topology.NewNode("leader2").WithTrustedPeer("leader1"),
		topology.NewNode("leader1"),
	}
}

func TestSpawnAll(t *testing.T) {
	alice, err := wallet.New("alice")
	require.NoError(t, err)

	ctl, err := newTestBuilder(t).
		WithNodes(threeNodes()...).
		WithWallet(alice).
		WithGenesisHash("0000").
		Build()
	require.NoError(t, err)
	defer ctl.Finish(false, nil)

	handles, err := ctl.SpawnAll()
	require.NoError(t, err)
	require.Len(t, handles, 3)

	aliases := []string{}
	for _, h := range ctl.Nodes() {
		aliases = append(aliases, h.Alias())
		assert.Equal(t, node.Running, h.State())
	}
	assert.Equal(t, []string{"leader1", "leader2", "passive"}, aliases)

	passive, err := ctl.Node("passive")
	require.NoError(t, err)
	conf, err := node.ReadFileConfig(filepath.Join(passive.WorkingDir(), node.ConfigFileName))
	require.NoError(t, err)

	peers := []string{}
	for _, p := range conf.P2P.TrustedPeers {
		peers = append(peers, p.Address)
	}
	l1, _ := ctl.Node("leader1")
	l2, _ := ctl.Node("leader2")
	assert.ElementsMatch(t, []string{l1.P2PAddr(), l2.P2PAddr()}, peers)
	assert.Equal(t, "passive", conf.Leadership)

	w, err := ctl.Wallet("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.Address(), w.Address())

	var nnf *NodeNotFoundError
	_, err = ctl.Node("ghost")
	assert.True(t, errors.As(err, &nnf))

	var wnf *WalletNotFoundError
	_, err = ctl.Wallet("bob")
	assert.True(t, errors.As(err, &wnf))

	fragmentNodes, err := ctl.FragmentNodes("leader2")
	require.NoError(t, err)
	require.Len(t, fragmentNodes, 1)
	assert.Equal(t, "leader2", fragmentNodes[0].Alias())

	require.NoError(t, ctl.Shutdown())
	for _, h := range ctl.Nodes() {
		assert.Equal(t, node.Stopped, h.State())
	}

	events, err := ctl.Journal().Filter(journal.NodeEvent)
	require.NoError(t, err)
	stopped := 0
	for _, e := range events {
		if e.Outcome == node.Stopped.String() {
			stopped++
		}
	}
	assert.Equal(t, 3, stopped)
}

func TestSpawnBeforeTrustedPeer(t *testing.T) {
	ctl, err := newTestBuilder(t).WithNodes(threeNodes()...).Build()
	require.NoError(t, err)
	defer ctl.Finish(false, nil)

	_, err = ctl.Spawn("leader2")
	var pns *PeerNotSpawnedError
	require.True(t, errors.As(err, &pns), "unexpected error %v", err)
	assert.Equal(t, "leader1", pns.Peer)

	_, err = ctl.Spawn("nobody")
	var nnf *NodeNotFoundError
	assert.True(t, errors.As(err, &nnf))
}

func TestConcurrentSpawnOfSameAlias(t *testing.T) {
	ctl, err := newTestBuilder(t).WithNodes(topology.NewNode("leader1")).Build()
	require.NoError(t, err)
	defer ctl.Finish(false, nil)

	const callers = 5
	var (
		wg   sync.WaitGroup
		errs = make([]error, callers)
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ctl.Spawn("leader1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Contains(t, err.Error(), "already spawned")
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, ctl.Nodes(), 1)
}

func TestBuildCircularTopology(t *testing.T) {
	_, err := newTestBuilder(t).WithNodes(
		topology.NewNode("a").WithTrustedPeer("b"),
		topology.NewNode("b").WithTrustedPeer("a"),
	).Build()
	assert.True(t, errors.Is(err, topology.ErrCircularTrust))
}

func TestBuildDuplicateWallet(t *testing.T) {
	a1, err := wallet.New("alice")
	require.NoError(t, err)
	a2, err := wallet.New("alice")
	require.NoError(t, err)

	_, err = newTestBuilder(t).
		WithNodes(topology.NewNode("leader1")).
		WithWallet(a1).
		WithWallet(a2).
		Build()
	assert.Error(t, err)
}

func TestShutdownReportsEveryFailure(t *testing.T) {
	ctl, err := newTestBuilder(t).
		WithNodes(
			topology.NewNode("leader1"),
			topology.NewNode("leader2").WithTrustedPeer("leader1"),
			topology.NewNode("leader3").WithTrustedPeer("leader1"),
		).
		WithNodeEnv("leader2", nodetest.HelperModeEnv+"="+nodetest.ModeRefuseShutdown).
		WithNodeEnv("leader3", nodetest.HelperModeEnv+"="+nodetest.ModeRefuseShutdown).
		Build()
	require.NoError(t, err)
	defer ctl.Finish(false, nil)

	_, err = ctl.SpawnAll()
	require.NoError(t, err)

	err = ctl.Shutdown()
	require.Error(t, err)

	var spe *node.ShutdownProcedureError
	assert.True(t, errors.As(err, &spe), "unexpected error %v", err)

	l1, _ := ctl.Node("leader1")
	assert.Equal(t, node.Stopped, l1.State())
	for _, alias := range []string{"leader2", "leader3"} {
		h, _ := ctl.Node(alias)
		assert.Equal(t, node.Failed, h.State())
		select {
		case <-h.Exited():
		case <-time.After(5 * time.Second):
			t.Fatalf("%s should have been killed", alias)
		}
	}
}

func TestFinishPersistsOnFailure(t *testing.T) {
	b := newTestBuilder(t).WithNodes(topology.NewNode("leader1"))
	b.conf.PersistOnFailure = true

	ctl, err := b.Build()
	require.NoError(t, err)

	_, err = ctl.SpawnAll()
	require.NoError(t, err)

	dir, err := ctl.Finish(true, map[string]string{"report.txt": "boom"})
	require.NoError(t, err)
	require.NotEmpty(t, dir)
	defer os.RemoveAll(dir)

	_, err = os.Stat(filepath.Join(dir, "leader1", node.ConfigFileName))
	assert.NoError(t, err)

	report, err := os.ReadFile(filepath.Join(dir, "report.txt"))
	require.NoError(t, err)
	assert.Equal(t, "boom", string(report))

	dump, err := os.ReadFile(filepath.Join(dir, JournalFileName))
	require.NoError(t, err)
	assert.Contains(t, string(dump), "node_event")
}

func TestFinishWithoutFailureKeepsNothing(t *testing.T) {
	ctl, err := newTestBuilder(t).WithNodes(topology.NewNode("leader1")).Build()
	require.NoError(t, err)

	_, err = ctl.SpawnAll()
	require.NoError(t, err)

	dir, err := ctl.Finish(false, nil)
	require.NoError(t, err)
	assert.Empty(t, dir)
}

func TestMeasureSync(t *testing.T) {
	ctl, err := newTestBuilder(t).
		WithNodes(
			topology.NewNode("leader1"),
			topology.NewNode("passive").WithTrustedPeer("leader1").Passive(),
		).
		Build()
	require.NoError(t, err)
	defer ctl.Finish(false, nil)

	_, err = ctl.SpawnAll()
	require.NoError(t, err)

	_, err = ctl.MeasureSync("initial")
	require.NoError(t, err)

	measurements, err := ctl.Journal().Filter(journal.SyncMeasurement)
	require.NoError(t, err)
	require.Len(t, measurements, 1)
	assert.Equal(t, "initial", measurements[0].Subject)
}
