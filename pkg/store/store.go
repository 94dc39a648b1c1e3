// Package store implements the durable, queryable local food database backed
// by SQLite. It is a passive store: all sync business logic lives in the
// orchestrator that writes to it.
package store

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/traintrack/fdcsync/pkg/errors"
	_ "modernc.org/sqlite"
)

// Store provides food record storage plus the two sync metadata slots.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the food database at the given path.
// WAL mode keeps search queries readable while a sync is writing.
func Open(path string) (*Store, error) {
	slog.Info("store_init", "db_path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		slog.Error("store_open_failed", "db_path", path, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL")
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("store_schema_failed", "db_path", path, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("store_ready", "db_path", path)
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBatch writes or replaces records by FDC id inside one transaction.
// The batch is all-or-nothing: any failure rolls back every row, so a crash
// mid-batch never leaves partial nutrient data visible as complete.
func (s *Store) UpsertBatch(ctx context.Context, records []FoodRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO foods (fdc_id, name, search_key, calories, protein, carbs, fat, serving_label, serving_grams, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fdc_id) DO UPDATE SET
			name = excluded.name,
			search_key = excluded.search_key,
			calories = excluded.calories,
			protein = excluded.protein,
			carbs = excluded.carbs,
			fat = excluded.fat,
			serving_label = excluded.serving_label,
			serving_grams = excluded.serving_grams,
			category = excluded.category
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare upsert")
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			r.FDCID, r.Name, r.SearchKey, r.Calories, r.Protein, r.Carbs, r.Fat,
			r.ServingLabel, r.ServingGrams, r.Category); err != nil {
			slog.Error("store_upsert_failed", "fdc_id", r.FDCID, "error", err)
			return errors.Wrap(err, "failed to upsert record")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit batch")
	}
	return nil
}

// SearchByName returns at most limit records whose lowercased name contains
// query (case-insensitive). Queries shorter than two characters return
// nothing without touching the table: a near-empty query would match most of
// a store holding hundreds of thousands of rows. The scan short-circuits at
// the limit-th match via SQL LIMIT.
func (s *Store) SearchByName(ctx context.Context, query string, limit int) ([]FoodRecord, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 || limit <= 0 {
		return nil, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT fdc_id, name, search_key, calories, protein, carbs, fat, serving_label, serving_grams, category
		FROM foods WHERE search_key LIKE ? ESCAPE '\' LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search foods")
	}
	defer rows.Close()

	var out []FoodRecord
	for rows.Next() {
		var r FoodRecord
		if err := rows.Scan(&r.FDCID, &r.Name, &r.SearchKey, &r.Calories, &r.Protein, &r.Carbs, &r.Fat,
			&r.ServingLabel, &r.ServingGrams, &r.Category); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the total number of stored food records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM foods").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count foods")
	}
	return n, nil
}

// ReadMeta returns the singleton sync status, or nil if no sync ever completed.
func (s *Store) ReadMeta(ctx context.Context) (*SyncMeta, error) {
	var m SyncMeta
	var synced int
	err := s.db.QueryRowContext(ctx,
		"SELECT synced, version, completed_at FROM sync_meta WHERE id = 1").
		Scan(&synced, &m.Version, &m.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read sync meta")
	}
	m.Synced = synced != 0
	return &m, nil
}

// WriteMeta overwrites the singleton sync status.
func (s *Store) WriteMeta(ctx context.Context, m SyncMeta) error {
	synced := 0
	if m.Synced {
		synced = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (id, synced, version, completed_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET synced = excluded.synced, version = excluded.version, completed_at = excluded.completed_at
	`, synced, m.Version, m.CompletedAt)
	return errors.Wrap(err, "failed to write sync meta")
}

// ReadCheckpoint returns the resume checkpoint, or nil if none is persisted.
func (s *Store) ReadCheckpoint(ctx context.Context) (*Checkpoint, error) {
	var cp Checkpoint
	err := s.db.QueryRowContext(ctx,
		"SELECT source_index, page_number, stored_so_far, total_estimate FROM sync_checkpoint WHERE id = 1").
		Scan(&cp.SourceIndex, &cp.PageNumber, &cp.StoredSoFar, &cp.TotalEstimate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read checkpoint")
	}
	return &cp, nil
}

// WriteCheckpoint persists the resume checkpoint, replacing any previous one.
func (s *Store) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_checkpoint (id, source_index, page_number, stored_so_far, total_estimate) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET source_index = excluded.source_index, page_number = excluded.page_number,
			stored_so_far = excluded.stored_so_far, total_estimate = excluded.total_estimate
	`, cp.SourceIndex, cp.PageNumber, cp.StoredSoFar, cp.TotalEstimate)
	return errors.Wrap(err, "failed to write checkpoint")
}

// ClearCheckpoint deletes the resume checkpoint. Clearing an absent
// checkpoint is not an error.
func (s *Store) ClearCheckpoint(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sync_checkpoint WHERE id = 1")
	return errors.Wrap(err, "failed to clear checkpoint")
}

// ClearAll wipes every food record and both metadata slots. Used for forced
// re-sync and troubleshooting.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		"DELETE FROM foods",
		"DELETE FROM sync_meta",
		"DELETE FROM sync_checkpoint",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to clear store")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit clear")
	}
	slog.Info("store_cleared")
	return nil
}

// escapeLike escapes LIKE wildcards so user queries match literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
