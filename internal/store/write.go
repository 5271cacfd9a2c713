package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
)

// Run is one exploration of an application.
type Run struct {
	ID      string `json:"id"`
	App     string `json:"app"`
	AppHash string `json:"app_hash"`
	Seq     int64  `json:"seq"`
}

// WriteRun inserts a run and assigns it the next seq. The returned run
// carries the assigned seq.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("write run: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, app, app_hash, seq)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.App, run.AppHash, run.Seq)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}

// WriteVector inserts a test vector into a run.
// Uses ON CONFLICT(run_id, id) DO NOTHING for idempotency: the id is a
// hash of the content, so a duplicate is the same vector.
func (s *Store) WriteVector(ctx context.Context, runID string, v ir.TestVector) error {
	return writeVector(ctx, s.db, runID, v)
}

// WriteVectors inserts vectors in one transaction.
func (s *Store) WriteVectors(ctx context.Context, runID string, vs []ir.TestVector) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write vectors: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, v := range vs {
		if err := writeVector(ctx, tx, runID, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write vectors: commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func writeVector(ctx context.Context, db execer, runID string, v ir.TestVector) error {
	id, err := ir.VectorID(v)
	if err != nil {
		return fmt.Errorf("write vector: %w", err)
	}
	if v.ID != "" && v.ID != id {
		return fmt.Errorf("write vector: id %s does not match content hash %s", v.ID, id)
	}

	assignments, err := marshalAssignments(v.Assignments)
	if err != nil {
		return fmt.Errorf("write vector: %w", err)
	}
	outcome, faultKind, location := marshalOutcome(v.Outcome)

	_, err = db.ExecContext(ctx, `
		INSERT INTO vectors
		(run_id, id, task, path, path_id, assignments, outcome, fault_kind, fault_location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, id) DO NOTHING
	`,
		runID,
		id,
		v.Task,
		v.Path,
		v.PathID,
		assignments,
		outcome,
		faultKind,
		location,
	)
	if err != nil {
		return fmt.Errorf("write vector: %w", err)
	}
	return nil
}

// WriteMeasurements stores the timing points of measured vectors,
// replacing earlier measurements of the same vectors.
func (s *Store) WriteMeasurements(ctx context.Context, runID string, ms []ir.Measurement) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write measurements: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range ms {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM measurements WHERE run_id = ? AND vector_id = ?`, runID, m.VectorID); err != nil {
			return fmt.Errorf("write measurements: %w", err)
		}
		for _, ev := range m.Events {
			resource := sql.NullString{String: ev.Resource, Valid: ev.Resource != ""}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO measurements
				(run_id, vector_id, seq, kind, resource, ceiling, cycle)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`,
				runID,
				m.VectorID,
				ev.Seq,
				string(ev.Kind),
				resource,
				int(ev.Ceiling),
				ev.Cycle,
			)
			if err != nil {
				return fmt.Errorf("write measurements: vector %s seq %d: %w", m.VectorID, ev.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write measurements: commit: %w", err)
	}
	return nil
}
