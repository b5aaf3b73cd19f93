package node

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaicnetworks/netharness/src/config"
	"github.com/mosaicnetworks/netharness/src/node/nodetest"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperNodeProcess is not a real test. It is the node binary launched by
// the other tests of this file.
func TestHelperNodeProcess(t *testing.T) {
	if !nodetest.IsHelper() {
		return
	}
	os.Exit(nodetest.RunHelperNode())
}

func helperParams(t *testing.T, mode string) SpawnParams {
	restAddr, err := FreeAddr()
	require.NoError(t, err)
	p2pAddr, err := FreeAddr()
	require.NoError(t, err)

	return SpawnParams{
		Binary:     os.Args[0],
		BinaryArgs: nodetest.HelperArgs("TestHelperNodeProcess"),
		Env:        nodetest.HelperEnvFor(mode),
		RESTAddr:   restAddr,
		P2PAddr:    p2pAddr,
		WorkingDir: t.TempDir(),
	}
}

func newTestController(t *testing.T) *Controller {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.ShutdownTimeout = 5 * time.Second
	return NewController(conf)
}

func spawnHelper(t *testing.T, c *Controller, mode string) *Handle {
	h, err := c.Spawn(topology.NewNode("leader1"), helperParams(t, mode))
	require.NoError(t, err)
	t.Cleanup(func() { c.Kill(h) })
	assert.Equal(t, Bootstrapping, h.State())
	return h
}

func TestSpawnBootstrapShutdown(t *testing.T) {
	c := newTestController(t)
	h := spawnHelper(t, c, nodetest.ModeNormal)

	require.NoError(t, c.WaitForBootstrap(h, 10*time.Second))
	assert.Equal(t, Running, h.State())
	assert.True(t, h.IsUp())
	assert.NotNil(t, h.Wire())

	conf, err := ReadFileConfig(filepath.Join(h.WorkingDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, h.RESTAddr(), conf.Rest.Listen)
	assert.Equal(t, "json", conf.Log.Format)
	assert.Equal(t, "leader", conf.Leadership)

	require.NoError(t, c.Shutdown(h))
	assert.Equal(t, Stopped, h.State())

	<-h.Exited()
	assert.True(t, h.Logs().Contains(LevelInfo, "shutting down", ""))
}

func TestSpawnPortUnavailable(t *testing.T) {
	c := newTestController(t)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	params := helperParams(t, "")
	params.RESTAddr = busy.Addr().String()

	h, err := c.Spawn(topology.NewNode("leader1"), params)
	assert.Nil(t, h)

	var puErr *PortUnavailableError
	require.True(t, errors.As(err, &puErr), "err: %v", err)
	assert.Equal(t, busy.Addr().(*net.TCPAddr).Port, puErr.Port)
}

func TestSpawnFailureRemovesTempDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	c := newTestController(t)
	params := helperParams(t, "")
	params.Binary = filepath.Join(tmp, "no-such-node")
	params.WorkingDir = ""

	h, err := c.Spawn(topology.NewNode("leader1"), params)
	require.Error(t, err)
	assert.Nil(t, h)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBootstrapTimeout(t *testing.T) {
	c := newTestController(t)
	c.conf.BootstrapPollInterval = 100 * time.Millisecond
	h := spawnHelper(t, c, nodetest.ModeNeverRunning)

	timeout := 500 * time.Millisecond
	start := time.Now()
	err := c.WaitForBootstrap(h, timeout)
	elapsed := time.Since(start)

	var btErr *BootstrapTimeoutError
	require.True(t, errors.As(err, &btErr), "err: %v", err)
	assert.Equal(t, "leader1", btErr.Alias)
	assert.True(t, elapsed >= timeout, "failed after %s", elapsed)
	assert.True(t, btErr.Elapsed >= timeout, "reported %s", btErr.Elapsed)
	// one poll plus generous slack for the status request itself
	assert.True(t, elapsed < timeout+c.conf.BootstrapPollInterval+time.Second, "failed after %s", elapsed)
	assert.Equal(t, Failed, h.State())
}

func TestProcessExitDuringBootstrap(t *testing.T) {
	c := newTestController(t)
	h := spawnHelper(t, c, nodetest.ModeCrash)

	err := c.WaitForBootstrap(h, 10*time.Second)

	var peErr *ProcessExitedError
	require.True(t, errors.As(err, &peErr), "err: %v", err)
	assert.Equal(t, Failed, h.State())

	errs := h.Logs().ErrorLines()
	require.Len(t, errs, 1)
	assert.Equal(t, "storage corrupted", errs[0].Msg)
}

func TestShutdownProcedure(t *testing.T) {
	c := newTestController(t)
	h := spawnHelper(t, c, nodetest.ModeRefuseShutdown)
	require.NoError(t, c.WaitForBootstrap(h, 10*time.Second))

	err := c.Shutdown(h)

	var spErr *ShutdownProcedureError
	require.True(t, errors.As(err, &spErr), "err: %v", err)
	assert.Equal(t, "cannot shutdown: storage busy", spErr.Message)
	assert.NotEmpty(t, spErr.Logs)
	assert.Equal(t, Failed, h.State())
}

func TestNodeFailedToShutdown(t *testing.T) {
	c := newTestController(t)
	c.conf.ShutdownTimeout = 500 * time.Millisecond
	h := spawnHelper(t, c, nodetest.ModeHang)
	require.NoError(t, c.WaitForBootstrap(h, 10*time.Second))

	err := c.Shutdown(h)

	var nfErr *NodeFailedToShutdownError
	require.True(t, errors.As(err, &nfErr), "err: %v", err)
	assert.Equal(t, Failed, h.State())

	require.NoError(t, c.Kill(h))
	<-h.Exited()
}

func TestAbnormalExitOnShutdown(t *testing.T) {
	c := newTestController(t)
	h := spawnHelper(t, c, nodetest.ModeCrashOnShutdown)
	require.NoError(t, c.WaitForBootstrap(h, 10*time.Second))

	err := c.Shutdown(h)

	var nfErr *NodeFailedToShutdownError
	require.True(t, errors.As(err, &nfErr), "err: %v", err)
	assert.Contains(t, nfErr.Cause, "abnormal exit")
}

func TestShutdownRequiresRunning(t *testing.T) {
	c := newTestController(t)
	h := spawnHelper(t, c, nodetest.ModeNeverRunning)

	err := c.Shutdown(h)

	var tErr *TransitionError
	require.True(t, errors.As(err, &tErr), "err: %v", err)
	assert.Equal(t, Bootstrapping, tErr.From)
}
