package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/traintrack/fdcsync/internal/config"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/store"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored foods, sync metadata and checkpoints",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Confirm the reset")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		return fmt.Errorf("reset deletes all local data; re-run with --yes to confirm")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer st.Close()

	if err := st.ClearAll(cmd.Context()); err != nil {
		return errors.Wrap(err, "reset failed")
	}

	fmt.Println("Local database cleared")
	return nil
}
