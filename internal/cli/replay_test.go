package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/store"
)

func TestReplayMissingSource(t *testing.T) {
	_, err := executeCommand(t, "replay", "--app", "resource")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of the flags")
}

func TestReplayLatestRun(t *testing.T) {
	db := testDB(t)
	run := exploreInto(t, db, "resource")

	out, err := executeCommand(t, "replay", "--app", "resource", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 16 vector(s): all reproduced")
	assert.NotContains(t, out, "✗")

	out, err = executeCommand(t, "--format", "json", "replay", "--app", "resource", "--db", db, "--run", run.ID)
	require.NoError(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, run.ID, resp.Data.RunID)
	assert.Equal(t, "db", resp.Data.Source)
	assert.Equal(t, 16, resp.Data.Total)
	assert.True(t, resp.Data.Deterministic)
	for _, rv := range resp.Data.Vectors {
		require.NotNil(t, rv.Recorded)
		assert.True(t, rv.Observed.Equal(*rv.Recorded), rv.Vector)
	}
}

func TestReplayMismatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	st, err := store.Open(db)
	require.NoError(t, err)

	spec := loadSpec(t, "preempt")
	hash, err := ir.AppHash(spec)
	require.NoError(t, err)
	run, err := st.WriteRun(ctx, store.Run{ID: "forged", App: "preempt", AppHash: hash})
	require.NoError(t, err)

	v := ir.TestVector{
		App:         "preempt",
		Task:        "C",
		Assignments: []ir.Assignment{{Resource: "X", Value: 0}},
		Outcome:     ir.Faulted(ir.FaultOverflow, "nowhere.go:1"),
	}
	v.PathID = ir.PathID(v.App, v.Task, v.Path)
	v.ID = ir.MustVectorID(v)
	require.NoError(t, st.WriteVector(ctx, run.ID, v))
	require.NoError(t, st.Close())

	out, err := executeCommand(t, "replay", "--app", "preempt", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "(recorded fault overflow at nowhere.go:1)")
	assert.Contains(t, out, "1 mismatch(es)")
}

func TestReplayKtestDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	explore := &ExploreOptions{
		AppOptions: AppOptions{RootOptions: &RootOptions{Format: "text"}, App: "resource"},
		KtestOut:   "/klee-out",
		Fs:         fs,
	}
	cmd, _ := testCommand()
	require.NoError(t, runExplore(explore, cmd))

	opts := &ReplayOptions{
		AppOptions: AppOptions{RootOptions: &RootOptions{Format: "json"}, App: "resource"},
		KtestDir:   "/klee-out",
		Fs:         fs,
	}
	cmd, buf := testCommand()
	require.NoError(t, runReplay(opts, cmd))

	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ktest", resp.Data.Source)
	assert.Equal(t, 16, resp.Data.Total)
	faults := 0
	for _, rv := range resp.Data.Vectors {
		assert.Nil(t, rv.Recorded)
		if rv.Observed.Kind == ir.OutcomeFault {
			faults++
		}
	}
	assert.Equal(t, 2, faults)
}

func TestReplayNoRun(t *testing.T) {
	db := testDB(t)
	exploreInto(t, db, "preempt")

	out, err := executeCommand(t, "replay", "--app", "resource", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNoRun+"]")
}

func TestReplayRunOfOtherApp(t *testing.T) {
	db := testDB(t)
	run := exploreInto(t, db, "preempt")

	out, err := executeCommand(t, "replay", "--app", "resource", "--db", db, "--run", run.ID)
	require.Error(t, err)
	assert.Contains(t, out, "belongs to app preempt")
}
