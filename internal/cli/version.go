package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "0.1.0"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the auxwars version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("auxwars", Version)
	},
}
