package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/traintrack/fdcsync/internal/config"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state of the local database",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer st.Close()

	count, err := st.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "count failed")
	}

	meta, err := st.ReadMeta(ctx)
	if err != nil {
		return errors.Wrap(err, "meta read failed")
	}

	cp, err := st.ReadCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "checkpoint read failed")
	}

	fmt.Printf("Foods stored:   %d\n", count)

	switch {
	case meta != nil && meta.Synced:
		fmt.Printf("Sync state:     complete (version %d, finished %s)\n", meta.Version, meta.CompletedAt)
	case cp != nil:
		partition := "unknown"
		if cp.SourceIndex < len(fdc.DefaultPartitions) {
			partition = fdc.DefaultPartitions[cp.SourceIndex]
		}
		fmt.Printf("Sync state:     in progress (%d/%d stored, next page %d of %q)\n",
			cp.StoredSoFar, cp.TotalEstimate, cp.PageNumber, partition)
	default:
		fmt.Println("Sync state:     never synced")
	}

	return nil
}
