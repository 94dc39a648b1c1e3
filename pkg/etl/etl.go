// Package etl implements the offline build-time pipeline that converts the
// bulk FoodData Central CSV archives into one compact pre-built JSON
// artifact. The design is streaming and memory-bounded: archives are
// processed one at a time, the huge nutrient file is pre-filtered before
// parsing, and output records are serialized as they are produced, so
// multi-gigabyte inputs never sit fully in memory.
package etl

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/traintrack/fdcsync/pkg/archive"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/mapper"
	"github.com/traintrack/fdcsync/pkg/mirror"
)

// Archive names one bulk dataset partition.
type Archive struct {
	Partition  string
	File       string
	HasBranded bool
}

// DefaultArchives lists the bulk CSV exports in processing order.
var DefaultArchives = []Archive{
	{Partition: "Foundation", File: "FoodData_Central_foundation_food_csv_2025-04.zip"},
	{Partition: "SR Legacy", File: "FoodData_Central_sr_legacy_food_csv_2018-04.zip"},
	{Partition: "Branded", File: "FoodData_Central_branded_food_csv_2025-04.zip", HasBranded: true},
}

// Config holds the pipeline settings.
type Config struct {
	// WorkDir is where archives are downloaded and extracted. Only one
	// partition's worth of temporary files exists at a time.
	WorkDir string
	// OutputPath is the final artifact location. The artifact is written to
	// a temp file and renamed on success, so no partial output is published.
	OutputPath string
	// BaseURL is the public HTTPS endpoint for the bulk archives. Ignored
	// when a mirror client is provided.
	BaseURL string
	// ArtifactVersion is the format-version tag embedded in the artifact.
	ArtifactVersion int
	// Archives overrides DefaultArchives when non-nil.
	Archives []Archive
}

// Pipeline converts the bulk CSV archives into the pre-built artifact.
type Pipeline struct {
	cfg    Config
	guard  *archive.Guard
	mirror *mirror.Client
	httpc  *http.Client
}

// New creates a pipeline. mirrorClient may be nil, in which case archives are
// fetched from cfg.BaseURL over HTTPS.
func New(cfg Config, guard *archive.Guard, mirrorClient *mirror.Client) *Pipeline {
	if cfg.Archives == nil {
		cfg.Archives = DefaultArchives
	}
	if cfg.ArtifactVersion == 0 {
		cfg.ArtifactVersion = 1
	}
	return &Pipeline{
		cfg:    cfg,
		guard:  guard,
		mirror: mirrorClient,
		httpc:  &http.Client{Timeout: 30 * time.Minute},
	}
}

// Run executes the whole pipeline. Any failure aborts the build: the work
// directory and the partial artifact are removed and the error propagates to
// the caller for a nonzero process exit.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	start := time.Now()
	work := filepath.Join(p.cfg.WorkDir, "fdc-etl")
	if err := os.RemoveAll(work); err != nil {
		return errors.Wrap(err, "failed to clean work dir")
	}
	if err := os.MkdirAll(work, 0755); err != nil {
		return errors.Wrap(err, "failed to create work dir")
	}
	defer os.RemoveAll(work)

	tmpOut := p.cfg.OutputPath + ".tmp"
	if err := os.MkdirAll(filepath.Dir(p.cfg.OutputPath), 0755); err != nil {
		return errors.Wrap(err, "failed to create output dir")
	}
	out, err := os.Create(tmpOut)
	if err != nil {
		return errors.Wrap(err, "failed to create artifact temp file")
	}
	defer func() {
		out.Close()
		if err != nil {
			os.Remove(tmpOut)
		}
	}()

	writer, err := NewArtifactWriter(out, p.cfg.ArtifactVersion, mapper.CategoryMap())
	if err != nil {
		return errors.Wrap(err, "failed to start artifact")
	}

	for _, ar := range p.cfg.Archives {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runPartition(ctx, ar, work, writer); err != nil {
			return errors.Wrapf(err, "partition %s", ar.Partition)
		}
	}

	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to finish artifact")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, "failed to close artifact")
	}
	if err := os.Rename(tmpOut, p.cfg.OutputPath); err != nil {
		return errors.Wrap(err, "failed to publish artifact")
	}

	slog.Info("etl_complete",
		"output", p.cfg.OutputPath,
		"foods", writer.Count(),
		"elapsed", time.Since(start).Round(time.Second))
	return nil
}

// runPartition downloads, extracts, processes and deletes one archive before
// the next begins, bounding disk usage to one partition at a time.
func (p *Pipeline) runPartition(ctx context.Context, ar Archive, work string, writer *ArtifactWriter) error {
	slog.Info("etl_partition_start", "partition", ar.Partition, "archive", ar.File)

	zipPath, err := p.fetchArchive(ctx, work, ar.File)
	if err != nil {
		return err
	}

	extractDir := filepath.Join(work, strings.TrimSuffix(ar.File, ".zip"))
	if err := archive.ExtractZip(zipPath, extractDir, p.guard); err != nil {
		return err
	}
	// The ZIP is no longer needed once extracted.
	if err := os.Remove(zipPath); err != nil {
		return errors.Wrap(err, "failed to remove archive")
	}

	if err := p.processPartition(ctx, ar, extractDir, work, writer); err != nil {
		return err
	}

	if err := os.RemoveAll(extractDir); err != nil {
		return errors.Wrap(err, "failed to remove extracted files")
	}
	return nil
}
