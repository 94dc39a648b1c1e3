package store

// Schema defines the SQLite schema for the local food database.
// foods holds one row per distinct food keyed by its stable FDC identifier;
// sync_meta and sync_checkpoint are singleton rows owned by the sync
// orchestrator.
const Schema = `
CREATE TABLE IF NOT EXISTS foods (
    fdc_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    search_key TEXT NOT NULL,
    calories INTEGER NOT NULL,
    protein REAL NOT NULL,
    carbs REAL NOT NULL,
    fat REAL NOT NULL,
    serving_label TEXT NOT NULL,
    serving_grams INTEGER NOT NULL,
    category TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_foods_search_key ON foods(search_key);

CREATE TABLE IF NOT EXISTS sync_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    synced INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 0,
    completed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sync_checkpoint (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    source_index INTEGER NOT NULL,
    page_number INTEGER NOT NULL,
    stored_so_far INTEGER NOT NULL,
    total_estimate INTEGER NOT NULL
);
`

// FoodRecord is one stored food row. Calories, protein, carbs and fat are all
// scaled from the source's per-100-unit basis by the same ServingGrams.
type FoodRecord struct {
	FDCID        int64
	Name         string
	SearchKey    string
	Calories     int
	Protein      float64
	Carbs        float64
	Fat          float64
	ServingLabel string
	ServingGrams int
	Category     string
}

// SyncMeta records whether a full sync has ever completed and at which data
// version. Read on every start to decide whether a re-sync is needed.
type SyncMeta struct {
	Synced      bool
	Version     int
	CompletedAt string
}

// Checkpoint marks the next unfetched unit of work of an in-progress sync.
// Its presence at startup signals an interrupted run and triggers resume.
type Checkpoint struct {
	SourceIndex   int
	PageNumber    int
	StoredSoFar   int
	TotalEstimate int
}
