package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/store"
	"github.com/roach88/rtfm/internal/testutil"
)

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// testCommand is a bare command capturing output, for calling run
// functions with options a flag cannot express.
func testCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	return cmd, buf
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "rtfm.db")
}

// exploreInto explores a built-in app into db with sequential run ids
// and returns the stored run.
func exploreInto(t *testing.T, db, app string) store.Run {
	t.Helper()
	opts := &ExploreOptions{
		AppOptions: AppOptions{RootOptions: &RootOptions{Format: "text"}, App: app, Database: db},
		RunIDs:     testutil.NewSequentialRunIDs(app),
	}
	cmd, _ := testCommand()
	require.NoError(t, runExplore(opts, cmd))

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.LatestRun(context.Background(), app)
	require.NoError(t, err)
	return run
}

func loadSpec(t *testing.T, name string) *ir.AppSpec {
	t.Helper()
	app, err := apps.Lookup(name)
	require.NoError(t, err)
	return app.Spec
}
