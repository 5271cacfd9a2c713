package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
)

// ErrNotFound is returned when a requested run does not exist.
var ErrNotFound = errors.New("not found")

// ReadRun returns a run by id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, app, app_hash, seq FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.App, &r.AppHash, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// LatestRun returns the run of app with the highest seq.
func (s *Store) LatestRun(ctx context.Context, app string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, app, app_hash, seq FROM runs
		WHERE app = ?
		ORDER BY seq DESC
		LIMIT 1
	`, app).Scan(&r.ID, &r.App, &r.AppHash, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("no run of app %s: %w", app, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ReadRuns returns every run ordered by seq.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, app, app_hash, seq FROM runs ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.App, &r.AppHash, &r.Seq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadVectors returns the vectors of a run, optionally restricted to one
// task. An empty task returns all tasks. Results are ordered by task and
// path so that a run reads back the same way every time.
func (s *Store) ReadVectors(ctx context.Context, runID, task string) ([]ir.TestVector, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.app, v.id, v.task, v.path, v.path_id, v.assignments, v.outcome, v.fault_kind, v.fault_location
		FROM vectors v
		JOIN runs r ON r.id = v.run_id
		WHERE v.run_id = ? AND (? = '' OR v.task = ?)
		ORDER BY v.task COLLATE BINARY ASC, v.path COLLATE BINARY ASC, v.id COLLATE BINARY ASC
	`, runID, task, task)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	vectors := []ir.TestVector{}
	for rows.Next() {
		v, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}
	return vectors, nil
}

func scanVector(rows *sql.Rows) (ir.TestVector, error) {
	var (
		v                   ir.TestVector
		assignments         string
		outcome             string
		faultKind, location sql.NullString
	)
	if err := rows.Scan(&v.App, &v.ID, &v.Task, &v.Path, &v.PathID, &assignments, &outcome, &faultKind, &location); err != nil {
		return v, fmt.Errorf("scan vector: %w", err)
	}

	var err error
	if v.Assignments, err = unmarshalAssignments(assignments); err != nil {
		return v, fmt.Errorf("vector %s: %w", v.ID, err)
	}
	if v.Outcome, err = unmarshalOutcome(outcome, faultKind, location); err != nil {
		return v, fmt.Errorf("vector %s: %w", v.ID, err)
	}
	return v, nil
}

// ReadMeasurements returns the measurements of a run, one per measured
// vector, ordered by task and vector id with events in seq order.
func (s *Store) ReadMeasurements(ctx context.Context, runID string) ([]ir.Measurement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.vector_id, v.task, v.outcome, v.fault_kind, v.fault_location,
		       m.seq, m.kind, m.resource, m.ceiling, m.cycle
		FROM measurements m
		JOIN vectors v ON v.run_id = m.run_id AND v.id = m.vector_id
		WHERE m.run_id = ?
		ORDER BY v.task COLLATE BINARY ASC, m.vector_id COLLATE BINARY ASC, m.seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	ms := []ir.Measurement{}
	for rows.Next() {
		var (
			vectorID, task, outcome string
			faultKind, location     sql.NullString
			ev                      ir.MeasureEvent
			kind                    string
			resource                sql.NullString
			ceiling                 int
		)
		if err := rows.Scan(&vectorID, &task, &outcome, &faultKind, &location,
			&ev.Seq, &kind, &resource, &ceiling, &ev.Cycle); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		ev.Kind = ir.TraceKind(kind)
		ev.Resource = resource.String
		ev.Ceiling = ir.Priority(ceiling)

		if n := len(ms); n == 0 || ms[n-1].VectorID != vectorID {
			out, err := unmarshalOutcome(outcome, faultKind, location)
			if err != nil {
				return nil, fmt.Errorf("vector %s: %w", vectorID, err)
			}
			ms = append(ms, ir.Measurement{VectorID: vectorID, Task: task, Outcome: out, Events: []ir.MeasureEvent{}})
		}
		last := &ms[len(ms)-1]
		last.Events = append(last.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate measurements: %w", err)
	}
	return ms, nil
}
