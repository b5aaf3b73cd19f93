package node

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mosaicnetworks/netharness/src/config"
	"github.com/mosaicnetworks/netharness/src/net"
	"github.com/mosaicnetworks/netharness/src/node/rest"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/sirupsen/logrus"
)

// Controller spawns node processes and drives their lifecycle.
type Controller struct {
	conf   *config.Config
	logger *logrus.Entry
}

// NewController ...
func NewController(conf *config.Config) *Controller {
	return &Controller{
		conf:   conf,
		logger: conf.Logger().WithField("component", "node-controller"),
	}
}

// Spawn checks that the ports of the node are free, writes its configuration
// file, and launches the process. The returned Handle is Bootstrapping.
func (c *Controller) Spawn(desc topology.NodeDescriptor, params SpawnParams) (*Handle, error) {
	logger := c.logger.WithField("alias", desc.Alias)

	if err := CheckPortsAvailable(params.RESTAddr, params.P2PAddr); err != nil {
		return nil, err
	}

	if params.Binary == "" {
		params.Binary = c.conf.NodeBinary
	}
	if params.LogLevel == "" {
		params.LogLevel = LevelInfo
	}

	workDir := params.WorkingDir
	cleanup := func() {}
	if workDir == "" {
		dir, err := os.MkdirTemp("", "netharness_"+desc.Alias+"_")
		if err != nil {
			return nil, err
		}
		workDir = dir
		cleanup = func() { os.RemoveAll(dir) }
	} else if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, err
	}

	configPath := filepath.Join(workDir, ConfigFileName)
	if err := NewFileConfig(desc, params, workDir).Write(configPath); err != nil {
		cleanup()
		return nil, fmt.Errorf("writing config of node '%s': %w", desc.Alias, err)
	}

	stdout, err := os.Create(filepath.Join(workDir, StdoutFileName))
	if err != nil {
		cleanup()
		return nil, err
	}

	cmd := exec.Command(params.Binary, params.args(configPath)...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), params.Env...)
	cmd.Stdout = stdout
	setProcessGroup(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		cleanup()
		return nil, err
	}

	h := &Handle{
		descriptor: desc,
		params:     params,
		workDir:    workDir,
		cmd:        cmd,
		rest:       rest.NewClient(params.RESTAddr, c.conf.HTTPTimeout, logger.WithField("client", "rest")),
		logs:       NewLogBuffer(c.conf.LogBufferSize),
		exited:     make(chan struct{}),
		logger:     logger,
	}
	if params.P2PAddr != "" {
		h.wire = net.NewClient(params.P2PAddr, c.conf.MaxPool, c.conf.TCPTimeout, logger.WithField("client", "wire"))
	}

	logger.WithFields(logrus.Fields{
		"binary":   params.Binary,
		"rest":     params.RESTAddr,
		"p2p":      params.P2PAddr,
		"work_dir": workDir,
	}).Debug("Spawning node")

	if err := cmd.Start(); err != nil {
		stdout.Close()
		if h.wire != nil {
			h.wire.Close()
		}
		cleanup()
		return nil, fmt.Errorf("starting node '%s': %w", desc.Alias, err)
	}

	h.transition(Bootstrapping)

	captured := make(chan struct{})
	go func() {
		defer close(captured)
		if err := h.logs.Capture(stderr); err != nil {
			logger.WithError(err).Debug("Log capture stopped")
			// keep the pipe drained so the node never blocks on stderr
			io.Copy(io.Discard, stderr)
		}
	}()

	go c.reap(h, captured, stdout)

	return h, nil
}

// reap waits for the process to exit. Wait must only be called once stderr
// has been read to the end.
func (c *Controller) reap(h *Handle, captured <-chan struct{}, stdout *os.File) {
	<-captured
	err := h.cmd.Wait()
	stdout.Close()

	h.exitMu.Lock()
	h.exitErr = err
	h.exitMu.Unlock()

	switch s := h.getState(); s {
	case Bootstrapping, Running:
		h.fail(fmt.Sprintf("process exited while %s: %v", s, err))
		h.logger.WithError(err).Error("Node process exited unexpectedly")
	default:
		h.logger.WithField("error", err).Debug("Node process exited")
	}

	close(h.exited)
}

// WaitForBootstrap polls the status endpoint of the node until it reports
// Running. A timeout of 0 means the configured default. It fails no earlier
// than timeout, and no later than timeout plus one poll.
func (c *Controller) WaitForBootstrap(h *Handle, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.conf.BootstrapTimeout
	}
	interval := c.conf.BootstrapPollInterval

	if s := h.getState(); s != Bootstrapping {
		return c.exitedOr(h, &TransitionError{Alias: h.Alias(), From: s, To: Running})
	}

	start := time.Now()
	for {
		status, err := h.rest.Status()
		if err == nil && status == rest.Running {
			if from, ok := h.transition(Running); !ok {
				return c.exitedOr(h, &TransitionError{Alias: h.Alias(), From: from, To: Running})
			}
			h.logger.WithField("elapsed", time.Since(start)).Info("Node is up")
			return nil
		}

		h.logger.WithFields(logrus.Fields{
			"status": status,
			"error":  err,
		}).Debug("Waiting for bootstrap")

		elapsed := time.Since(start)
		if elapsed >= timeout {
			h.fail(fmt.Sprintf("bootstrap timeout after %s", elapsed))
			return &BootstrapTimeoutError{
				Alias:   h.Alias(),
				Elapsed: elapsed,
				Logs:    h.logs.Tail(logTail),
			}
		}

		wait := interval
		if remaining := timeout - elapsed; remaining < wait {
			wait = remaining
		}

		select {
		case <-h.exited:
			return &ProcessExitedError{
				Alias: h.Alias(),
				State: Bootstrapping,
				Err:   h.ExitErr(),
				Logs:  h.logs.Tail(logTail),
			}
		case <-time.After(wait):
		}
	}
}

// exitedOr reports a process exit in place of err. The reaper marks the node
// Failed just before closing Exited, hence the short grace period.
func (c *Controller) exitedOr(h *Handle, err error) error {
	grace := time.Duration(0)
	if h.getState() == Failed {
		grace = time.Second
	}
	select {
	case <-h.exited:
	case <-time.After(grace):
	}
	if h.hasExited() {
		return &ProcessExitedError{
			Alias: h.Alias(),
			State: Bootstrapping,
			Err:   h.ExitErr(),
			Logs:  h.logs.Tail(logTail),
		}
	}
	return err
}

// Shutdown asks a Running node to stop and waits for its process to exit.
func (c *Controller) Shutdown(h *Handle) error {
	if from, ok := h.transition(ShuttingDown); !ok {
		return &TransitionError{Alias: h.Alias(), From: from, To: ShuttingDown}
	}

	msg, err := h.rest.Shutdown()
	if err != nil {
		h.fail(fmt.Sprintf("shutdown request failed: %v", err))
		return &NodeFailedToShutdownError{
			Alias: h.Alias(),
			Cause: fmt.Sprintf("shutdown request failed: %v", err),
			Logs:  h.logs.Tail(logTail),
		}
	}
	if msg != "" {
		h.fail("shutdown refused: " + msg)
		return &ShutdownProcedureError{
			Alias:   h.Alias(),
			Message: msg,
			Logs:    h.logs.Tail(logTail),
		}
	}

	select {
	case <-h.exited:
	case <-time.After(c.conf.ShutdownTimeout):
		cause := fmt.Sprintf("process still alive %s after shutdown request", c.conf.ShutdownTimeout)
		h.fail(cause)
		return &NodeFailedToShutdownError{
			Alias: h.Alias(),
			Cause: cause,
			Logs:  h.logs.Tail(logTail),
		}
	}

	if err := h.ExitErr(); err != nil {
		h.fail(fmt.Sprintf("abnormal exit: %v", err))
		return &NodeFailedToShutdownError{
			Alias: h.Alias(),
			Cause: fmt.Sprintf("abnormal exit: %v", err),
			Logs:  h.logs.Tail(logTail),
		}
	}

	h.transition(Stopped)
	if h.wire != nil {
		h.wire.Close()
	}
	h.logger.Info("Node stopped")
	return nil
}

// Kill stops the process group of a node without asking. Nodes that were not
// terminal become Failed.
func (c *Controller) Kill(h *Handle) error {
	if h.hasExited() || h.cmd == nil {
		return nil
	}

	h.fail("killed")
	if err := killProcessGroup(h.cmd); err != nil {
		return err
	}

	select {
	case <-h.exited:
	case <-time.After(c.conf.ShutdownTimeout):
		return fmt.Errorf("node '%s' survived a kill", h.Alias())
	}
	if h.wire != nil {
		h.wire.Close()
	}
	return nil
}
