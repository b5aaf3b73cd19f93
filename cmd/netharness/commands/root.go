package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for netharness
var RootCmd = &cobra.Command{
	Use:              "netharness",
	Short:            "Test harness for blockchain node networks",
	TraverseChildren: true,
}
