package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the taskvault version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("taskvault %s\n", Version)
	},
}
