package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/testutil"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run of app with a deterministic id.
func createTestRun(t *testing.T, s *Store, ids *testutil.SequentialRunIDs, app string) Run {
	t.Helper()
	run, err := s.WriteRun(context.Background(), Run{ID: ids.Generate(), App: app, AppHash: "hash-" + app})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestVector builds a vector with a valid content id.
func createTestVector(task, path string, x uint32, out ir.Outcome) ir.TestVector {
	v := ir.TestVector{
		App:  "resource",
		Task: task,
		Path: path,
		Assignments: []ir.Assignment{
			{Resource: "X", Value: x},
			{Resource: "Y", Value: 7},
		},
		Outcome: out,
	}
	v.PathID = ir.PathID(v.App, task, path)
	v.ID = ir.MustVectorID(v)
	return v
}
