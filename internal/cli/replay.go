package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/roach88/rtfm/internal/harness"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/ktest"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	AppOptions
	KtestDir string

	// Fs holds the ktest directory. Defaults to the OS filesystem.
	Fs afero.Fs
}

// ReplayedVector is the observed outcome of one replayed vector.
type ReplayedVector struct {
	Vector     string          `json:"vector,omitempty"`
	Task       string          `json:"task"`
	Inputs     []ir.Assignment `json:"inputs"`
	Recorded   *ir.Outcome     `json:"recorded,omitempty"`
	Observed   ir.Outcome      `json:"observed"`
	Reproduced bool            `json:"reproduced"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	App           string           `json:"app"`
	RunID         string           `json:"run_id,omitempty"`
	Source        string           `json:"source"` // "db" or "ktest"
	Vectors       []ReplayedVector `json:"vectors"`
	Total         int              `json:"total"`
	Mismatches    int              `json:"mismatches"`
	Deterministic bool             `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{AppOptions: AppOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded vectors and verify their outcomes",
		Long: `Replay the test vectors of a stored run on the concrete scheduler and
check that every vector reproduces its recorded outcome. Without --run the
latest run of the app is used.

With --ktest the vectors are read from a ktest directory instead. Those
carry no outcome; the observed outcomes are reported.

Exit codes:
  0 - All vectors reproduced
  1 - One or more vectors did not reproduce
  2 - Command error (database not found, no run, etc.)

Examples:
  rtfm replay --app resource --db ./rtfm.db
  rtfm replay --app resource --db ./rtfm.db --run 0190...
  rtfm replay --app loop --ktest ./klee-out`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	addAppFlags(cmd, &opts.AppOptions, false)
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay this run instead of the latest")
	cmd.Flags().StringVar(&opts.KtestDir, "ktest", "", "replay a ktest directory instead of a stored run")
	cmd.MarkFlagsMutuallyExclusive("db", "ktest")
	cmd.MarkFlagsOneRequired("db", "ktest")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	app, err := loadApp(formatter, &opts.AppOptions)
	if err != nil {
		return err
	}

	result := ReplayResult{App: app.Spec.Name, Vectors: []ReplayedVector{}, Deterministic: true}
	var vectors []ir.TestVector
	if opts.KtestDir != "" {
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		vectors, err = ktest.ReadDir(fs, opts.KtestDir, app.Spec)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read ktest directory", err)
		}
		result.Source = "ktest"
	} else {
		st, run, err := openRun(ctx, formatter, &opts.AppOptions, app)
		if err != nil {
			return err
		}
		defer st.Close()
		vectors, err = st.ReadVectors(ctx, run.ID, "")
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read vectors", err)
		}
		result.Source = "db"
		result.RunID = run.ID
	}

	logger := formatter.Logger()
	for _, v := range vectors {
		observed, err := harness.Replay(ctx, app, v, harness.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("replay of %s failed", v.Task), err)
		}
		rv := ReplayedVector{Vector: v.ID, Task: v.Task, Inputs: v.Assignments, Observed: observed, Reproduced: true}
		if result.Source == "db" {
			recorded := v.Outcome
			rv.Recorded = &recorded
			if !observed.Equal(recorded) {
				rv.Reproduced = false
				result.Mismatches++
				result.Deterministic = false
				logger.Warn("replay mismatch", "vector", v.ID, "recorded", recorded.String(), "observed", observed.String())
			}
		}
		result.Vectors = append(result.Vectors, rv)
	}
	result.Total = len(result.Vectors)

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d vector(s) did not reproduce", result.Mismatches, result.Total))
	}
	return nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	w := f.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No vectors to replay.")
		return
	}

	for _, rv := range result.Vectors {
		status := "✓"
		if !rv.Reproduced {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s %s", status, shortID(rv.Vector), rv.Task)
		for _, a := range rv.Inputs {
			fmt.Fprintf(w, " %s=%d", a.Resource, a.Value)
		}
		fmt.Fprintf(w, ": %s", rv.Observed)
		if !rv.Reproduced && rv.Recorded != nil {
			fmt.Fprintf(w, " (recorded %s)", *rv.Recorded)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	if result.Deterministic {
		fmt.Fprintf(w, "Replayed %d vector(s): all reproduced\n", result.Total)
	} else {
		fmt.Fprintf(w, "Replayed %d vector(s): %d mismatch(es)\n", result.Total, result.Mismatches)
	}
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
