// Package flow implements the durable sync workflow. It drives the sync
// orchestrator's phases as resumable states using the superfly/fsm library:
// an interrupted `fdcsync sync` picks its workflow position back up on the
// next invocation, while page-level resume stays owned by the store
// checkpoint.
package flow

import (
	"context"

	"github.com/superfly/fsm"
	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/syncer"
)

// WorkflowID is the stable id the sync command starts the workflow under, so
// the journal of an interrupted run is resumed rather than duplicated.
const WorkflowID = "usda-food-sync"

// Machine holds dependencies for the sync workflow transitions.
type Machine struct {
	orc        *syncer.Orchestrator
	report     syncer.ProgressFunc
	maxRetries int
}

// NewMachine creates a workflow machine around an orchestrator. report may be
// nil. maxRetries bounds per-state retries by the FSM runtime.
func NewMachine(orc *syncer.Orchestrator, report syncer.ProgressFunc, maxRetries int) *Machine {
	return &Machine{
		orc:        orc,
		report:     report,
		maxRetries: maxRetries,
	}
}

// Register registers the sync workflow with the FSM manager.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[SyncRequest, SyncResponse], fsm.Resume, error) {
	start, resume, err := fsm.Register[SyncRequest, SyncResponse](manager, "food-sync").
		Start(StateCheckMeta, m.handleCheckMeta).
		To(StateProbeTotals, m.handleProbeTotals).
		To(StateSyncPages, m.handleSyncPages).
		To(StateFinalize, m.handleFinalize).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register sync workflow")
	}

	return start, resume, nil
}
