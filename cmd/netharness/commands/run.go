package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/netharness/src/network"
	"github.com/mosaicnetworks/netharness/src/synctime"
	"github.com/mosaicnetworks/netharness/src/topology"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that spawns a network of nodes
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Spawn a network, measure its sync time, and shut it down",
		PreRunE: loadRunConfig,
		RunE:    runNetwork,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runNetwork(cmd *cobra.Command, args []string) error {
	logger := _config.Harness.Logger()

	path := _config.Topology
	if path == "" {
		path = _config.Harness.TopologyFile()
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	descriptors, err := topology.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	builder := network.NewBuilder(&_config.Harness).WithNodes(descriptors...)
	if _config.GenesisBlock != "" {
		builder.WithGenesisBlock(_config.GenesisBlock)
	}
	if _config.GenesisHash != "" {
		builder.WithGenesisHash(_config.GenesisHash)
	}

	ctl, err := builder.Build()
	if err != nil {
		return err
	}

	failed := true
	defer func() {
		dir, err := ctl.Finish(failed, nil)
		if err != nil {
			logger.WithError(err).Error("Finishing network")
		}
		if dir != "" {
			fmt.Printf("Network state saved in %s\n", dir)
		}
	}()

	if _, err := ctl.SpawnAll(); err != nil {
		return err
	}

	nodes, err := ctl.SyncNodes()
	if err != nil {
		return err
	}
	params := synctime.NetworkSize(len(nodes), _config.SyncTolerance)
	if _, err := ctl.SyncMeasurer(params).WithOutput(os.Stdout).MeasureAndLog(nodes, "network sync"); err != nil {
		return err
	}

	if _config.Wait {
		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
		logger.Info("Network is up, waiting for interrupt")
		<-signalChan
	}

	failed = false
	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	addHarnessFlags(cmd)

	cmd.Flags().String("topology", _config.Topology, "YAML file declaring the nodes and their trusted peers (default [datadir]/topology.yaml)")
	cmd.Flags().String("node-binary", _config.Harness.NodeBinary, "Node executable")
	cmd.Flags().String("genesis-block", _config.GenesisBlock, "Genesis block file handed to every node")
	cmd.Flags().String("genesis-hash", _config.GenesisHash, "Genesis block hash, when nodes fetch block0 from their peers")

	// Timing
	cmd.Flags().Duration("bootstrap-timeout", _config.Harness.BootstrapTimeout, "Time allowed for a node to report Running")
	cmd.Flags().Duration("bootstrap-poll", _config.Harness.BootstrapPollInterval, "Interval between two status checks during bootstrap")
	cmd.Flags().Duration("shutdown-timeout", _config.Harness.ShutdownTimeout, "Time allowed for a node to exit after a shutdown request")
	cmd.Flags().Duration("sync-poll", _config.Harness.SyncPollInterval, "Interval between two sync snapshots")
	cmd.Flags().Duration("report-interval", _config.Harness.ReportInterval, "Interval between two sync progress reports")
	cmd.Flags().Int("sync-tolerance", _config.SyncTolerance, "Number of nodes allowed to lag behind")

	// Store
	cmd.Flags().Bool("store", _config.Harness.Store, "Keep the run journal in badgerDB")
	cmd.Flags().String("db", _config.Harness.DatabaseDir, "Journal database directory")
	cmd.Flags().Bool("persist-on-failure", _config.Harness.PersistOnFailure, "Copy node directories aside when the run fails")

	cmd.Flags().Bool("wait", _config.Wait, "Keep the network running until interrupted")
}

func addHarnessFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Harness.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Harness.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.Harness.LogFile, "Also write JSON log records to this file")
}

func loadRunConfig(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd, args); err != nil {
		return err
	}

	_config.Harness.Logger().WithFields(logrus.Fields{
		"DataDir":          _config.Harness.DataDir,
		"NodeBinary":       _config.Harness.NodeBinary,
		"Topology":         _config.Topology,
		"GenesisBlock":     _config.GenesisBlock,
		"GenesisHash":      _config.GenesisHash,
		"BootstrapTimeout": _config.Harness.BootstrapTimeout,
		"ShutdownTimeout":  _config.Harness.ShutdownTimeout,
		"SyncTolerance":    _config.SyncTolerance,
		"Store":            _config.Harness.Store,
		"PersistOnFailure": _config.Harness.PersistOnFailure,
	}).Debug("RUN")

	return nil
}
