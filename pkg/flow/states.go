package flow

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/superfly/fsm"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/syncer"
)

// checkRetryBudget aborts the workflow once the FSM has re-entered a state
// too many times. Transient remote failures already get their own retries
// inside the fdc client; this ceiling stops a permanently broken environment
// from looping forever.
func (m *Machine) checkRetryBudget(ctx context.Context, state string) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("sync_flow_max_retries_exceeded", "state", state, "max_retries", m.maxRetries)
		return fmt.Errorf("max retries (%d) exceeded in %s", m.maxRetries, state)
	}
	return nil
}

// classify decides whether an error from an orchestrator phase should abort
// the workflow (cancellation, permanent remote failure) or be retried by the
// FSM runtime (everything else).
func classify(err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return fsm.Abort(err)
	}
	if stderrors.Is(err, fdc.ErrPermanent) {
		return fsm.Abort(err)
	}
	return err
}

// handleCheckMeta decides whether a sync is needed at all.
func (m *Machine) handleCheckMeta(ctx context.Context, req *fsm.Request[SyncRequest, SyncResponse]) (*fsm.Response[SyncResponse], error) {
	slog.Info("sync_flow_check_meta", "force", req.Msg.Force)

	if err := m.checkRetryBudget(ctx, StateCheckMeta); err != nil {
		return nil, fsm.Abort(err)
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &SyncResponse{}
	}

	need, err := m.orc.NeedsSync(ctx, req.Msg.Force)
	if err != nil {
		slog.Error("sync_flow_meta_check_failed", "error", err)
		return nil, errors.Wrap(err, "check sync meta")
	}
	if !need {
		slog.Info("sync_flow_already_synced")
		resp.Skipped = true
		resp.Status = StatusSkipped
	}

	return fsm.NewResponse(resp), nil
}

// handleProbeTotals establishes the resume checkpoint, probing partition
// totals on a fresh sync.
func (m *Machine) handleProbeTotals(ctx context.Context, req *fsm.Request[SyncRequest, SyncResponse]) (*fsm.Response[SyncResponse], error) {
	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Skipped {
		return fsm.NewResponse(resp), nil
	}

	slog.Info("sync_flow_probe_totals")

	if err := m.checkRetryBudget(ctx, StateProbeTotals); err != nil {
		return nil, fsm.Abort(err)
	}

	if err := m.orc.ProbeTotals(ctx, m.report); err != nil {
		slog.Error("sync_flow_probe_failed", "error", err)
		return nil, classify(errors.Wrap(err, "probe totals"))
	}

	return fsm.NewResponse(resp), nil
}

// handleSyncPages works through every remaining page. The phase reads its
// position from the store checkpoint, so an FSM-level retry of this state
// resumes where the last stored page left off instead of starting over.
func (m *Machine) handleSyncPages(ctx context.Context, req *fsm.Request[SyncRequest, SyncResponse]) (*fsm.Response[SyncResponse], error) {
	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Skipped {
		return fsm.NewResponse(resp), nil
	}

	slog.Info("sync_flow_sync_pages")

	if err := m.checkRetryBudget(ctx, StateSyncPages); err != nil {
		return nil, fsm.Abort(err)
	}

	if err := m.orc.SyncPages(ctx, m.report); err != nil {
		slog.Error("sync_flow_pages_failed", "error", err)
		return nil, classify(errors.Wrap(err, "sync pages"))
	}

	return fsm.NewResponse(resp), nil
}

// handleFinalize clears the checkpoint and records the completed sync.
func (m *Machine) handleFinalize(ctx context.Context, req *fsm.Request[SyncRequest, SyncResponse]) (*fsm.Response[SyncResponse], error) {
	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if resp.Skipped {
		slog.Info("sync_flow_complete", "status", resp.Status)
		return fsm.NewResponse(resp), nil
	}

	if err := m.checkRetryBudget(ctx, StateFinalize); err != nil {
		return nil, fsm.Abort(err)
	}

	// Capture totals before the checkpoint is cleared.
	done := func(p syncer.Progress) {
		resp.Stored = p.Current
		resp.Total = p.Total
		if m.report != nil {
			m.report(p)
		}
	}

	if err := m.orc.Finalize(ctx, done); err != nil {
		slog.Error("sync_flow_finalize_failed", "error", err)
		return nil, classify(errors.Wrap(err, "finalize sync"))
	}

	resp.Status = StatusComplete
	slog.Info("sync_flow_complete", "status", resp.Status, "stored", resp.Stored)

	return fsm.NewResponse(resp), nil
}
