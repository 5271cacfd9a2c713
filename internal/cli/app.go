package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/compiler"
	"github.com/roach88/rtfm/internal/harness"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
	"github.com/roach88/rtfm/internal/store"
)

// AppOptions are the flags shared by commands that act on one application.
type AppOptions struct {
	*RootOptions
	App      string // built-in app name
	SpecDir  string // optional declaration overriding the embedded one
	Database string
	RunID    string
}

func addAppFlags(cmd *cobra.Command, opts *AppOptions, dbRequired bool) {
	cmd.Flags().StringVar(&opts.App, "app", "", fmt.Sprintf("built-in application %v (required)", apps.Names()))
	_ = cmd.MarkFlagRequired("app")
	cmd.Flags().StringVar(&opts.SpecDir, "spec", "", "directory of .cue files replacing the built-in declaration")
	if dbRequired {
		cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
		_ = cmd.MarkFlagRequired("db")
	} else {
		cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	}
}

// loadApp resolves the application the same way scenarios do and checks
// its declaration against the resource table.
func loadApp(f *OutputFormatter, opts *AppOptions) (*apps.App, error) {
	app, err := harness.ResolveApp(&harness.Scenario{App: opts.App, Spec: opts.SpecDir})
	if err != nil {
		return nil, f.Fail(ExitCommandError, declarationErrorCode(err), "failed to load app", err)
	}
	if _, err := resource.Build(app.Spec); err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeConfig, "invalid declaration", err)
	}
	f.VerboseLog("Loaded app %s: %d task(s), %d resource(s)", app.Spec.Name, len(app.Spec.Tasks), len(app.Spec.Resources))
	return app, nil
}

func declarationErrorCode(err error) string {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return ErrCodeCompile
	}
	var cfgErr *resource.ConfigError
	if errors.As(err, &cfgErr) {
		return ErrCodeConfig
	}
	return ErrCodeGeneric
}

// openRun opens the store and picks the run: the one named by --run, or
// the latest run of the app.
func openRun(ctx context.Context, f *OutputFormatter, opts *AppOptions, app *apps.App) (*store.Store, store.Run, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, store.Run{}, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx, app.Spec.Name)
	}
	if err != nil {
		_ = st.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.Run{}, f.Fail(ExitCommandError, ErrCodeNoRun, "no recorded run", err)
		}
		return nil, store.Run{}, f.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}
	if run.App != app.Spec.Name {
		_ = st.Close()
		return nil, store.Run{}, f.Fail(ExitCommandError, ErrCodeNoRun,
			fmt.Sprintf("run %s belongs to app %s, not %s", run.ID, run.App, app.Spec.Name), nil)
	}
	if hash, err := ir.AppHash(app.Spec); err == nil && hash != run.AppHash {
		f.Logger().Warn("declaration changed since the run was recorded", "run", run.ID, "recorded", run.AppHash, "current", hash)
	}
	f.VerboseLog("Using run %s (seq %d)", run.ID, run.Seq)
	return st, run, nil
}
