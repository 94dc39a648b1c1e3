package flow

// SyncRequest is the workflow input.
type SyncRequest struct {
	Force bool
}

// SyncResponse is the workflow output, accumulated across transitions.
type SyncResponse struct {
	// From CheckMeta
	Skipped bool

	// From SyncPages / Finalize
	Stored int
	Total  int

	// Final status
	Status string
}

// State names
const (
	StateCheckMeta   = "check_meta"
	StateProbeTotals = "probe_totals"
	StateSyncPages   = "sync_pages"
	StateFinalize    = "finalize"
	StateFailed      = "failed"
)

// Status values
const (
	StatusSkipped  = "skipped"
	StatusComplete = "complete"
)
