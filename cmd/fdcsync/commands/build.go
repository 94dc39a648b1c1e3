package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/traintrack/fdcsync/internal/config"
	"github.com/traintrack/fdcsync/pkg/archive"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/etl"
	"github.com/traintrack/fdcsync/pkg/mirror"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the food artifact from the bulk CSV exports",
	Long:  `Downloads the bulk FoodData Central CSV archives, joins and maps their contents, and writes the compact JSON artifact shipped with the app.`,
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := ensureDirectories(cfg.DBPath, "", cfg.WorkDir); err != nil {
		return err
	}

	guard := archive.NewGuard(cfg.MaxFileSize, cfg.MaxTotalSize, cfg.MaxCompressionRatio)

	var mirrorClient *mirror.Client
	if cfg.MirrorBucket != "" {
		mirrorClient, err = mirror.NewClient(ctx, cfg.MirrorBucket, cfg.MirrorRegion)
		if err != nil {
			return errors.Wrap(err, "mirror client failed")
		}
	}

	pipeline := etl.New(etl.Config{
		WorkDir:         cfg.WorkDir,
		OutputPath:      cfg.ArtifactPath,
		BaseURL:         cfg.BulkBaseURL,
		ArtifactVersion: cfg.ArtifactVersion,
	}, guard, mirrorClient)

	if err := pipeline.Run(ctx); err != nil {
		return errors.Wrap(err, "build failed")
	}

	fmt.Printf("Artifact written to %s\n", cfg.ArtifactPath)
	return nil
}
