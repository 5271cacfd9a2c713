package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/harness"
	"github.com/roach88/rtfm/internal/ktest"
	"github.com/roach88/rtfm/internal/store"
)

// ExploreOptions holds flags for the explore command.
type ExploreOptions struct {
	AppOptions
	KtestOut     string
	MaxDecisions int
	MaxCycles    int64

	// Fs receives the ktest directory. Defaults to the OS filesystem.
	Fs afero.Fs
	// RunIDs names stored runs. Defaults to UUIDv7.
	RunIDs engine.RunIDGenerator
}

// ExploreResult is the output of the explore command.
type ExploreResult struct {
	*harness.Report
	RunID    string `json:"run_id,omitempty"`
	RunSeq   int64  `json:"run_seq,omitempty"`
	KtestDir string `json:"ktest_dir,omitempty"`
}

// NewExploreCommand creates the explore command.
func NewExploreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExploreOptions{AppOptions: AppOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Enumerate the feasible paths of every task",
		Long: `Explore every task of an application symbolically, one path per
feasible combination of branch decisions, and emit a test vector per path.

Vectors are stored as a new run when --db is given and written as a
directory of .ktest files when --ktest-out is given.

Examples:
  rtfm explore --app resource
  rtfm explore --app preempt --db ./rtfm.db
  rtfm explore --app loop --ktest-out ./klee-out --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplore(opts, cmd)
		},
	}

	addAppFlags(cmd, &opts.AppOptions, false)
	cmd.Flags().StringVar(&opts.KtestOut, "ktest-out", "", "write vectors as .ktest files into this directory")
	cmd.Flags().IntVar(&opts.MaxDecisions, "max-decisions", 0, "branch decisions allowed per path (0 = default)")
	cmd.Flags().Int64Var(&opts.MaxCycles, "max-cycles", 0, "cycles allowed per path (0 = default)")

	return cmd
}

func runExplore(opts *ExploreOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	app, err := loadApp(formatter, &opts.AppOptions)
	if err != nil {
		return err
	}

	hopts := []harness.Option{harness.WithLogger(formatter.Logger())}
	if opts.MaxDecisions > 0 {
		hopts = append(hopts, harness.WithMaxDecisions(opts.MaxDecisions))
	}
	if opts.MaxCycles > 0 {
		hopts = append(hopts, harness.WithMaxCycles(opts.MaxCycles))
	}

	report, err := harness.ExploreApp(ctx, app, hopts...)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, "exploration failed", err)
	}
	result := &ExploreResult{Report: report}

	if opts.Database != "" {
		run, err := storeReport(ctx, opts, report)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to store vectors", err)
		}
		result.RunID, result.RunSeq = run.ID, run.Seq
		formatter.VerboseLog("Stored %d vector(s) as run %s", len(report.Vectors), run.ID)
	}

	if opts.KtestOut != "" {
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		if err := ktest.WriteDir(fs, opts.KtestOut, app.Spec, report.Vectors); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, "failed to write ktest files", err)
		}
		result.KtestDir = opts.KtestOut
		formatter.VerboseLog("Wrote %d ktest file(s) to %s", len(report.Vectors), opts.KtestOut)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputExploreText(formatter, result)
	return nil
}

func storeReport(ctx context.Context, opts *ExploreOptions, report *harness.Report) (store.Run, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return store.Run{}, err
	}
	defer st.Close()

	ids := opts.RunIDs
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	run, err := st.WriteRun(ctx, store.Run{ID: ids.Generate(), App: report.App, AppHash: report.AppHash})
	if err != nil {
		return store.Run{}, err
	}
	if err := st.WriteVectors(ctx, run.ID, report.Vectors); err != nil {
		return store.Run{}, err
	}
	return run, nil
}

func outputExploreText(f *OutputFormatter, result *ExploreResult) {
	w := f.Writer
	fmt.Fprintf(w, "App %s: %d vector(s)\n\n", result.App, len(result.Vectors))
	for _, s := range result.Stats {
		fmt.Fprintf(w, "  %s: %d path(s), %d fault(s), %d run(s)", s.Task, s.Paths, s.Faults, s.Runs)
		if s.Suppressed > 0 {
			fmt.Fprintf(w, ", %d suppressed", s.Suppressed)
		}
		if s.Aborted > 0 {
			fmt.Fprintf(w, ", %d aborted", s.Aborted)
		}
		fmt.Fprintln(w)
	}

	if f.Verbose {
		fmt.Fprintln(w)
		for _, v := range result.Vectors {
			fmt.Fprintf(w, "  %s %s path=%q %s", shortID(v.ID), v.Task, v.Path, v.Outcome)
			for _, a := range v.Assignments {
				fmt.Fprintf(w, " %s=%d", a.Resource, a.Value)
			}
			fmt.Fprintln(w)
		}
	}

	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "\nwarning: %s", warn)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
	}
	if result.RunID != "" {
		fmt.Fprintf(w, "\nStored run %s (seq %d)\n", result.RunID, result.RunSeq)
	}
	if result.KtestDir != "" {
		fmt.Fprintf(w, "Wrote ktest files to %s\n", result.KtestDir)
	}
}

// commandContext returns the command's context, or a background context
// when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
