package commands

import (
	"fmt"

	"github.com/mosaicnetworks/netharness/src/common"
	"github.com/mosaicnetworks/netharness/src/mock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewMockCmd returns the command that runs a standalone mock peer
func NewMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mock",
		Short:   "Run a mock protocol peer and check that a node connects to it",
		PreRunE: loadConfig,
		RunE:    runMock,
	}
	AddMockFlags(cmd)
	return cmd
}

func runMock(cmd *cobra.Command, args []string) error {
	logger := _config.Harness.Logger().WithField("prefix", "mock")

	version, err := mock.ParseProtocolVersion(_config.MockVersion)
	if err != nil {
		return err
	}

	builder := mock.NewBuilder().
		WithPort(_config.MockPort).
		WithProtocolVersion(version).
		WithTimeout(_config.Harness.TCPTimeout).
		WithLogger(logger)

	if _config.GenesisHash != "" {
		hash, err := common.DecodeFromString(_config.GenesisHash)
		if err != nil {
			return fmt.Errorf("genesis hash: %w", err)
		}
		builder.WithGenesisHash(hash)
	}

	ctl, err := builder.Build()
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"addr":     ctl.Addr(),
		"protocol": version,
		"duration": _config.MockDuration,
	}).Info("Mock peer listening")

	code := ctl.FinishAndVerifyWithin(_config.MockDuration, func(v *mock.Verifier) bool {
		return v.MethodExecutedAtLeastOnce(mock.Handshake)
	})

	fmt.Println(code)
	if code != mock.Success {
		return fmt.Errorf("no handshake received within %s", _config.MockDuration)
	}
	return nil
}

//AddMockFlags adds flags to the Mock command
func AddMockFlags(cmd *cobra.Command) {
	addHarnessFlags(cmd)

	cmd.Flags().Int("port", _config.MockPort, "Listen port, 0 picks a free one")
	cmd.Flags().String("protocol", _config.MockVersion, "Protocol version announced in the handshake (bft, genesis_praos)")
	cmd.Flags().String("genesis-hash", _config.GenesisHash, "Hex genesis hash announced in the handshake")
	cmd.Flags().Duration("duration", _config.MockDuration, "How long to wait for a handshake")
	cmd.Flags().DurationP("timeout", "t", _config.Harness.TCPTimeout, "TCP Timeout")
}
