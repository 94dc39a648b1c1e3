// Package syncer drives the end-to-end synchronization of the remote food
// dataset into the local store: resume-point detection, paginated fetching,
// record mapping, batched writes and per-page checkpointing.
package syncer

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/mapper"
	"github.com/traintrack/fdcsync/pkg/store"
)

// DataVersion is bumped whenever the stored record shape or mapping rules
// change; a store synced at an older version is re-synced on next start.
const DataVersion = 3

// ErrAlreadyRunning is returned when a second trigger observes a sync in
// progress and declines to start a duplicate run.
var ErrAlreadyRunning = stderrors.New("sync already running")

// ProgressPhase labels what the sync is currently doing.
type ProgressPhase string

const (
	PhaseProbing ProgressPhase = "probing_totals"
	PhaseStoring ProgressPhase = "storing"
	PhaseDone    ProgressPhase = "done"
)

// Progress is reported to the caller after every page.
type Progress struct {
	Phase   ProgressPhase
	Current int
	Total   int
	Message string
}

// ProgressFunc receives progress updates. May be nil.
type ProgressFunc func(Progress)

// Orchestrator owns SyncMeta and the ResumeCheckpoint exclusively. It fetches
// one page at a time, in strictly increasing page order within each partition
// and in fixed partition order, so the checkpoint always names the next
// unfetched coordinate.
type Orchestrator struct {
	store      *store.Store
	client     *fdc.Client
	version    int
	partitions []string
	running    atomic.Bool
}

// New creates an orchestrator over the default partition list.
func New(st *store.Store, client *fdc.Client) *Orchestrator {
	return &Orchestrator{
		store:      st,
		client:     client,
		version:    DataVersion,
		partitions: fdc.DefaultPartitions,
	}
}

// TryAcquire claims the single-run slot. Callers driving the phase methods
// directly must bracket them with TryAcquire/Release; Run does this itself.
func (o *Orchestrator) TryAcquire() bool {
	return o.running.CompareAndSwap(false, true)
}

// Release frees the single-run slot. Safe to call more than once.
func (o *Orchestrator) Release() {
	o.running.Store(false)
}

// Run performs a full synchronization: no-op when already synced at the
// current version (unless force), resume from checkpoint otherwise. A
// concurrent Run returns ErrAlreadyRunning. On cancellation or permanent
// remote failure the checkpoint from the last stored page remains in place.
func (o *Orchestrator) Run(ctx context.Context, force bool, report ProgressFunc) error {
	if !o.TryAcquire() {
		return ErrAlreadyRunning
	}
	defer o.Release()

	need, err := o.NeedsSync(ctx, force)
	if err != nil {
		return err
	}
	if !need {
		slog.Info("sync_skipped", "version", o.version)
		return nil
	}

	if err := o.ProbeTotals(ctx, report); err != nil {
		return err
	}
	if err := o.SyncPages(ctx, report); err != nil {
		return err
	}
	return o.Finalize(ctx, report)
}

// NeedsSync reports whether a sync should run: never synced, synced at a
// stale version, or forced by the caller.
func (o *Orchestrator) NeedsSync(ctx context.Context, force bool) (bool, error) {
	if force {
		return true, nil
	}
	meta, err := o.store.ReadMeta(ctx)
	if err != nil {
		return false, errors.Wrap(err, "read sync meta")
	}
	if meta != nil && meta.Synced && meta.Version == o.version {
		return false, nil
	}
	return true, nil
}

// ProbeTotals ensures a checkpoint exists. A fresh sync probes every
// partition once for its record count; the summed grand total is used only
// for progress display, never correctness. An existing checkpoint (an
// interrupted prior sync) is left untouched so resume starts from its exact
// coordinates.
func (o *Orchestrator) ProbeTotals(ctx context.Context, report ProgressFunc) error {
	cp, err := o.store.ReadCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "read checkpoint")
	}
	if cp != nil {
		slog.Info("sync_resuming",
			"source_index", cp.SourceIndex,
			"page_number", cp.PageNumber,
			"stored_so_far", cp.StoredSoFar)
		return nil
	}

	total := 0
	for _, partition := range o.partitions {
		emit(report, Progress{
			Phase:   PhaseProbing,
			Message: fmt.Sprintf("Counting %s foods", partition),
		})
		hits, err := o.client.ProbeTotal(ctx, partition)
		if err != nil {
			return errors.Wrapf(err, "probe total for %s", partition)
		}
		slog.Info("sync_partition_total", "partition", partition, "total_hits", hits)
		total += hits
	}

	cp = &store.Checkpoint{SourceIndex: 0, PageNumber: 1, StoredSoFar: 0, TotalEstimate: total}
	if err := o.store.WriteCheckpoint(ctx, *cp); err != nil {
		return errors.Wrap(err, "write initial checkpoint")
	}
	slog.Info("sync_started", "grand_total_estimate", total)
	return nil
}

// SyncPages works through the partitions from the persisted checkpoint. After
// every stored page the checkpoint is rewritten to the next unfetched
// coordinate, so at most one page of work is ever lost to an interruption.
func (o *Orchestrator) SyncPages(ctx context.Context, report ProgressFunc) error {
	cp, err := o.store.ReadCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "read checkpoint")
	}
	if cp == nil {
		return stderrors.New("no checkpoint: ProbeTotals must run first")
	}

	for i := cp.SourceIndex; i < len(o.partitions); i++ {
		partition := o.partitions[i]
		page := 1
		if i == cp.SourceIndex {
			page = cp.PageNumber
		}

		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			resp, err := o.client.FetchPage(ctx, partition, page)
			if err != nil {
				return errors.Wrapf(err, "fetch %s page %d", partition, page)
			}

			batch := make([]store.FoodRecord, 0, len(resp.Foods))
			for _, raw := range resp.Foods {
				if rec, ok := mapper.Map(raw); ok {
					batch = append(batch, rec)
				}
			}

			if err := o.store.UpsertBatch(ctx, batch); err != nil {
				return errors.Wrapf(err, "store %s page %d", partition, page)
			}

			cp.StoredSoFar += len(batch)
			cp.SourceIndex = i
			cp.PageNumber = page + 1
			if page >= resp.TotalPages || len(resp.Foods) == 0 {
				// Partition finished: next coordinate is the following
				// partition's first page.
				cp.SourceIndex = i + 1
				cp.PageNumber = 1
			}
			if err := o.store.WriteCheckpoint(ctx, *cp); err != nil {
				return errors.Wrap(err, "write checkpoint")
			}

			slog.Info("sync_page_stored",
				"partition", partition,
				"page", page,
				"total_pages", resp.TotalPages,
				"batch", len(batch),
				"stored_so_far", cp.StoredSoFar)

			emit(report, Progress{
				Phase:   PhaseStoring,
				Current: cp.StoredSoFar,
				Total:   cp.TotalEstimate,
				Message: fmt.Sprintf("Saving %s foods (page %d of %d)", partition, page, resp.TotalPages),
			})

			if cp.SourceIndex != i {
				break
			}
			page++
		}
	}
	return nil
}

// Finalize clears the checkpoint and records the completed sync.
func (o *Orchestrator) Finalize(ctx context.Context, report ProgressFunc) error {
	cp, err := o.store.ReadCheckpoint(ctx)
	if err != nil {
		return errors.Wrap(err, "read checkpoint")
	}
	stored := 0
	total := 0
	if cp != nil {
		stored = cp.StoredSoFar
		total = cp.TotalEstimate
	}

	if err := o.store.ClearCheckpoint(ctx); err != nil {
		return errors.Wrap(err, "clear checkpoint")
	}
	if err := o.store.WriteMeta(ctx, store.SyncMeta{
		Synced:      true,
		Version:     o.version,
		CompletedAt: time.Now().Format(time.RFC3339),
	}); err != nil {
		return errors.Wrap(err, "write sync meta")
	}

	slog.Info("sync_complete", "stored", stored, "version", o.version)
	emit(report, Progress{
		Phase:   PhaseDone,
		Current: stored,
		Total:   total,
		Message: "Food database ready",
	})
	return nil
}

func emit(report ProgressFunc, p Progress) {
	if report != nil {
		report(p)
	}
}
