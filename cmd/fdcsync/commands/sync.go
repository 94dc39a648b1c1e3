package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
	"github.com/traintrack/fdcsync/internal/config"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/flow"
	"github.com/traintrack/fdcsync/pkg/store"
	"github.com/traintrack/fdcsync/pkg/syncer"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the food database from the FoodData Central API",
	Long:  `Pages through every dataset partition of the FoodData Central search API and stores mapped records locally. Interrupted runs resume from the last stored page.`,
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Re-sync even when the database is already up to date")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	// SIGINT/SIGTERM cancel the context; the checkpoint written after the
	// last completed page makes the interruption resumable.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.ValidateForSync(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.DBPath, cfg.FlowDBPath, ""); err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer st.Close()

	client := fdc.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.PageSize, cfg.RequestsPerMinute, fdc.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		RateLimitWait:  cfg.RateLimitWait,
	})

	orc := syncer.New(st, client)
	if !orc.TryAcquire() {
		return syncer.ErrAlreadyRunning
	}
	defer orc.Release()

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FlowDBPath})
	if err != nil {
		return errors.Wrap(err, "workflow manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := flow.NewMachine(orc, logProgress, cfg.FlowMaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "workflow register failed")
	}

	req := &flow.SyncRequest{Force: syncForce}
	resp := &flow.SyncResponse{}

	version, err := start(ctx, flow.WorkflowID, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "workflow start failed")
	}

	slog.Info("sync_workflow_started", "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "sync failed")
	}

	if resp.Skipped {
		fmt.Println("Database already up to date; nothing to sync (use --force to re-sync)")
		return nil
	}

	slog.Info("sync_complete", "status", resp.Status, "stored", resp.Stored, "total", resp.Total)
	fmt.Printf("Sync complete: %d of %d foods stored\n", resp.Stored, resp.Total)
	return nil
}

// logProgress reports orchestrator progress through the structured logger.
func logProgress(p syncer.Progress) {
	slog.Info("sync_progress",
		"phase", p.Phase,
		"current", p.Current,
		"total", p.Total,
		"message", p.Message)
}
