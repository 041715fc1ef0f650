// Package cli implements the auxwars command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "auxwars",
	Short: "AuxWars party-queue session server",
	Long: `AuxWars runs one shared party queue: anonymous guests nominate and
rank tracks over a time-boxed session while the host moderates and runs
versus battles and chaos delete windows.`,
	SilenceUsage: true,
}

func init() {
	// Env bootstrap before any command reads config. Missing .env is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "auxwars.toml", "path to the TOML config file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
