package commands

import (
	"time"

	"github.com/mosaicnetworks/netharness/src/config"
)

//CLIConfig contains configuration for the run and mock commands
type CLIConfig struct {
	Harness       config.Config `mapstructure:",squash"`
	Topology      string        `mapstructure:"topology"`
	GenesisBlock  string        `mapstructure:"genesis-block"`
	GenesisHash   string        `mapstructure:"genesis-hash"`
	SyncTolerance int           `mapstructure:"sync-tolerance"`
	Wait          bool          `mapstructure:"wait"`

	MockPort     int           `mapstructure:"port"`
	MockVersion  string        `mapstructure:"protocol"`
	MockDuration time.Duration `mapstructure:"duration"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Harness:      *config.NewDefaultConfig(),
		MockPort:     0,
		MockVersion:  "genesis_praos",
		MockDuration: 30 * time.Second,
	}
}
