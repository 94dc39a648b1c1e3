package flow

import (
	"errors"
	"testing"
)

// TestResponseAccumulation tests SyncResponse field accumulation across states
func TestResponseAccumulation(t *testing.T) {
	resp := &SyncResponse{}

	// Simulate check_meta on an up-to-date store
	resp.Skipped = true
	resp.Status = StatusSkipped

	if !resp.Skipped {
		t.Error("Skipped should be set by check_meta")
	}
	if resp.Status != StatusSkipped {
		t.Errorf("expected status %s, got %s", StatusSkipped, resp.Status)
	}

	// Simulate a real run: finalize captures totals before the checkpoint is
	// cleared, then stamps the final status
	resp = &SyncResponse{}
	resp.Stored = 8200
	resp.Total = 450000
	resp.Status = StatusComplete

	if resp.Stored == 0 || resp.Total == 0 {
		t.Error("finalize should capture totals from the last checkpoint")
	}
	if resp.Status != StatusComplete {
		t.Errorf("expected status %s, got %s", StatusComplete, resp.Status)
	}
}

// TestSkipShortCircuit tests that a skipped response passes through the
// remaining states untouched
func TestSkipShortCircuit(t *testing.T) {
	resp := &SyncResponse{Skipped: true, Status: StatusSkipped}

	// Simulate the guard at the top of probe_totals, sync_pages and finalize
	for _, state := range []string{StateProbeTotals, StateSyncPages, StateFinalize} {
		if !resp.Skipped {
			t.Errorf("state %s should have short-circuited", state)
		}
	}

	if resp.Status != StatusSkipped {
		t.Errorf("skip status must survive to the end, got %s", resp.Status)
	}
	if resp.Stored != 0 || resp.Total != 0 {
		t.Error("skipped run should report no stored records")
	}
}

// TestClassify_RetryablePassthrough tests that ordinary errors are left for
// the FSM runtime to retry
func TestClassify_RetryablePassthrough(t *testing.T) {
	transient := errors.New("connection reset")
	if got := classify(transient); got != transient {
		t.Errorf("transient error should pass through unchanged, got %v", got)
	}
}

func TestStateNames(t *testing.T) {
	states := []string{StateCheckMeta, StateProbeTotals, StateSyncPages, StateFinalize, StateFailed}
	seen := make(map[string]bool)
	for _, s := range states {
		if s == "" {
			t.Error("state name must not be empty")
		}
		if seen[s] {
			t.Errorf("duplicate state name %s", s)
		}
		seen[s] = true
	}
}
