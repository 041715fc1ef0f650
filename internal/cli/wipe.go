package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auxwars/auxwars/internal/daemon"
)

func init() {
	rootCmd.AddCommand(wipeCmd)
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Reset all session state in the configured store",
	Long: `Delete the catalog, every entitlement ledger, bans, the activity
feed, and any running mini-game from the configured store. Irreversible.`,
	RunE: runWipe,
}

func runWipe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := st.Wipe(cmd.Context()); err != nil {
		return fmt.Errorf("wipe session state: %w", err)
	}
	fmt.Println("Session state wiped.")
	return nil
}
